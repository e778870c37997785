package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/events"
	"freight-portal/internal/integrations"
	"freight-portal/internal/registry"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/eventbus"
	"freight-portal/pkg/types"
)

// PageDeps — общие зависимости всех страниц.
type PageDeps struct {
	Provider integrations.RecordProvider
	Refs     ReferenceServiceInterface
	Importer ImportServiceInterface
	Validate *validator.Validate
	Bus      *eventbus.Bus
	Logger   *zap.Logger
}

// PageView — снимок страницы для фронтенда.
type PageView struct {
	Entity     string   `json:"entity"`
	Title      string   `json:"title"`
	Columns    []Column `json:"columns"`
	Rows       []Row    `json:"rows"`
	Total      int      `json:"total"`
	IsLoading  bool     `json:"isLoading"`
	SearchText string   `json:"searchText"`
}

// Page — состояние экрана справочника одного пользователя.
// Изменяющие операции выполняются по одной (opMu).
type Page struct {
	entity  registry.Entity
	session types.Session
	deps    PageDeps
	dialog  *RecordDialog
	logger  *zap.Logger

	opMu sync.Mutex

	mu         sync.RWMutex
	records    []entities.Record
	isLoading  bool
	searchText string
	loaded     bool
	stale      bool

	importing atomic.Bool
	lastUsed  atomic.Int64
}

func NewPage(entity registry.Entity, session types.Session, deps PageDeps) *Page {
	p := &Page{
		entity:  entity,
		session: session,
		deps:    deps,
		records: []entities.Record{},
		logger: deps.Logger.With(
			zap.String("entity", entity.Name()),
			zap.Uint64("userID", session.UserID),
		),
	}
	p.dialog = NewRecordDialog(entity, deps.Provider, deps.Validate, p.onCommit, p.logger)
	p.touch()
	return p
}

func (p *Page) Entity() registry.Entity { return p.entity }

func (p *Page) touch() { p.lastUsed.Store(time.Now().UnixNano()) }

// Load заменяет записи целиком. Ошибка бэкенда не пробрасывается:
// страница показывает пустой список.
func (p *Page) Load(ctx context.Context) {
	p.mu.Lock()
	p.isLoading = true
	p.mu.Unlock()

	records, err := p.deps.Provider.ListRecords(ctx, p.entity.Endpoint(), integrations.DefaultListRequest())
	if err != nil {
		p.logger.Error("Ошибка при загрузке списка", zap.Error(err))
		records = []entities.Record{}
	}

	p.mu.Lock()
	p.records = records
	p.isLoading = false
	p.loaded = true
	p.stale = false
	p.mu.Unlock()
}

// ensureLoaded грузит список при первом обращении или после MarkStale.
func (p *Page) ensureLoaded(ctx context.Context) {
	p.mu.RLock()
	need := !p.loaded || p.stale
	p.mu.RUnlock()
	if need {
		p.opMu.Lock()
		defer p.opMu.Unlock()
		p.mu.RLock()
		need = !p.loaded || p.stale
		p.mu.RUnlock()
		if need {
			p.Load(ctx)
		}
	}
}

// MarkStale — данные изменил кто-то другой, перечитать при следующем обращении.
func (p *Page) MarkStale() {
	p.mu.Lock()
	p.stale = true
	p.mu.Unlock()
}

// Refresh перечитывает список по запросу пользователя.
func (p *Page) Refresh(ctx context.Context) {
	p.touch()
	p.opMu.Lock()
	defer p.opMu.Unlock()
	p.Load(ctx)
}

func (p *Page) SetSearch(text string) {
	p.mu.Lock()
	p.searchText = text
	p.mu.Unlock()
}

// Records — копия текущего списка.
func (p *Page) Records() []entities.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]entities.Record(nil), p.records...)
}

func (p *Page) Columns() []Column {
	return Columns(p.entity.DisplayedFields())
}

// View строит таблицу с учётом строки поиска.
func (p *Page) View(ctx context.Context) PageView {
	p.touch()
	p.ensureLoaded(ctx)
	refs := p.deps.Refs.Index(ctx, p.session, p.entity)

	p.mu.RLock()
	records := p.records
	search := p.searchText
	loading := p.isLoading
	p.mu.RUnlock()

	rows := Render(records, p.entity.Descriptors(), p.entity.IDField(), search, refs)
	return PageView{
		Entity:     p.entity.Name(),
		Title:      p.entity.Title(),
		Columns:    p.Columns(),
		Rows:       rows,
		Total:      len(records),
		IsLoading:  loading,
		SearchText: search,
	}
}

func (p *Page) find(id string) (entities.Record, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, rec := range p.records {
		if rid, ok := rec.ID(p.entity.IDField()); ok && rid == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// OpenDialog открывает форму; справочники подгружаются параллельно,
// их сбои форму не блокируют.
func (p *Page) OpenDialog(ctx context.Context, mode DialogMode, id string) (DialogView, error) {
	p.touch()
	var existing entities.Record
	if mode == DialogEdit {
		p.ensureLoaded(ctx)
		rec, ok := p.find(id)
		if !ok {
			fetched, err := p.fetch(ctx, id)
			if err != nil {
				return DialogView{}, err
			}
			rec = fetched
		}
		existing = rec
	}
	refs := p.deps.Refs.Index(ctx, p.session, p.entity)
	return p.dialog.Open(mode, existing, refs)
}

// fetch читает запись, которой ещё нет в загруженном списке
// (добавлена другим пользователем или за пределами первой страницы).
func (p *Page) fetch(ctx context.Context, id string) (entities.Record, error) {
	rec, err := p.deps.Provider.GetRecord(ctx, p.entity.Endpoint(), id)
	if err != nil {
		var netErr *apperrors.NetworkError
		if errors.As(err, &netErr) && netErr.Status == http.StatusNotFound {
			return nil, apperrors.ErrNotFound
		}
		p.logger.Warn("Ошибка при чтении записи", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return rec, nil
}

func (p *Page) CancelDialog() {
	p.dialog.Cancel()
}

// SubmitDialog отправляет форму. id должен совпадать с редактируемой записью.
func (p *Page) SubmitDialog(ctx context.Context, mode DialogMode, id string, values map[string]any) (entities.Record, error) {
	p.touch()
	if p.dialog.State() == DialogClosed {
		return nil, apperrors.ErrDialogClosed
	}
	if p.dialog.Mode() != mode {
		return nil, apperrors.NewBadRequestError("форма открыта в другом режиме")
	}
	if mode == DialogEdit {
		if current, ok := values[p.entity.IDField()]; ok && entities.Stringify(current) != id {
			return nil, apperrors.NewBadRequestError("идентификатор записи не совпадает")
		}
	}

	p.opMu.Lock()
	defer p.opMu.Unlock()
	return p.dialog.Submit(ctx, p.session, values)
}

// onCommit вызывается под opMu из SubmitDialog.
func (p *Page) onCommit(ctx context.Context, rec entities.Record, mode DialogMode) {
	idField := p.entity.IDField()
	id, _ := rec.ID(idField)

	// View рендерит срез уже после RUnlock, поэтому массив не меняем на месте
	p.mu.Lock()
	next := make([]entities.Record, 0, len(p.records)+1)
	replaced := false
	for _, existing := range p.records {
		if rid, ok := existing.ID(idField); ok && rid == id && mode == DialogEdit && !replaced {
			next = append(next, rec)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if mode == DialogAdd {
		next = append(next, rec)
	}
	p.records = next
	p.mu.Unlock()

	p.publish(ctx, events.RecordCommitted{
		Entity:    p.entity.Name(),
		CompanyID: p.session.CompanyID,
		UserID:    p.session.UserID,
		RecordID:  id,
		Created:   mode == DialogAdd,
	})
	p.Load(ctx)
}

// Delete удаляет запись на бэкенде; при ошибке локальное состояние не меняется.
func (p *Page) Delete(ctx context.Context, id string) error {
	p.touch()
	p.opMu.Lock()
	defer p.opMu.Unlock()

	if err := p.deps.Provider.DeleteRecord(ctx, p.entity.Endpoint(), id); err != nil {
		p.logger.Warn("Ошибка при удалении записи", zap.String("id", id), zap.Error(err))
		return err
	}

	idField := p.entity.IDField()
	p.mu.Lock()
	kept := p.records[:0:0]
	for _, rec := range p.records {
		if rid, ok := rec.ID(idField); ok && rid == id {
			continue
		}
		kept = append(kept, rec)
	}
	p.records = kept
	p.mu.Unlock()

	p.publish(ctx, events.RecordDeleted{
		Entity:    p.entity.Name(),
		CompanyID: p.session.CompanyID,
		UserID:    p.session.UserID,
		RecordID:  id,
	})
	p.Load(ctx)
	return nil
}

// Import допускает один импорт на страницу; после него список перечитывается
// при любом исходе.
func (p *Page) Import(ctx context.Context, file io.Reader, fileName string) (ImportResult, error) {
	p.touch()
	if !p.importing.CompareAndSwap(false, true) {
		return ImportResult{}, apperrors.ErrImportInProgress
	}
	defer p.importing.Store(false)

	result, err := p.deps.Importer.Import(ctx, p.session, p.entity, file, fileName)
	if err != nil {
		return ImportResult{}, err
	}

	p.publish(ctx, events.ImportCompleted{
		Entity:    p.entity.Name(),
		CompanyID: p.session.CompanyID,
		UserID:    p.session.UserID,
		BatchID:   result.BatchID,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
	p.Refresh(ctx)
	return result, nil
}

// Export выгружает текущий список целиком, без учёта поиска.
func (p *Page) Export(ctx context.Context, now time.Time) (*excelize.File, string, error) {
	p.touch()
	p.ensureLoaded(ctx)
	refs := p.deps.Refs.Index(ctx, p.session, p.entity)
	f, err := BuildWorkbook(p.entity, p.Records(), refs)
	if err != nil {
		return nil, "", err
	}
	return f, FileName(p.entity.Name(), KindExport, now), nil
}

func (p *Page) Sample(now time.Time) (*excelize.File, string, error) {
	f, err := BuildSample(p.entity)
	if err != nil {
		return nil, "", err
	}
	return f, FileName(p.entity.Name(), KindSample, now), nil
}

func (p *Page) publish(ctx context.Context, event eventbus.Event) {
	if p.deps.Bus != nil {
		p.deps.Bus.Publish(ctx, event)
	}
}
