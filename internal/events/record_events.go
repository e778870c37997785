package events

// Имена событий шины.
const (
	RecordCommittedName = "record.committed"
	RecordDeletedName   = "record.deleted"
	ImportCompletedName = "import.completed"
)

// RecordCommitted — запись сохранена через форму (добавление или правка).
type RecordCommitted struct {
	Entity    string
	CompanyID uint64
	UserID    uint64
	RecordID  string
	Created   bool
}

func (e RecordCommitted) Name() string { return RecordCommittedName }

// RecordDeleted — запись удалена со страницы.
type RecordDeleted struct {
	Entity    string
	CompanyID uint64
	UserID    uint64
	RecordID  string
}

func (e RecordDeleted) Name() string { return RecordDeletedName }

// ImportCompleted — пакетный импорт завершён (в том числе частично).
type ImportCompleted struct {
	Entity    string
	CompanyID uint64
	UserID    uint64
	BatchID   string
	Succeeded int
	Failed    int
}

func (e ImportCompleted) Name() string { return ImportCompletedName }
