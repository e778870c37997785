package entities

// DataType определяет, как поле форматируется в таблице и приводится при импорте.
type DataType string

const (
	TypeString    DataType = "string"
	TypeInt       DataType = "int"
	TypeFloat     DataType = "float"
	TypeBool      DataType = "bool"
	TypeImage     DataType = "image"
	TypeDate      DataType = "date"
	TypePercent   DataType = "percent"
	TypeReference DataType = "reference"
)

// FieldDescriptor — статическое описание одного атрибута сущности.
type FieldDescriptor struct {
	FieldName   string   `yaml:"name" json:"fieldName"`
	DisplayName string   `yaml:"display" json:"displayName"`
	IsDisplayed bool     `yaml:"displayed" json:"isDisplayed"`
	IsSelected  bool     `yaml:"selected" json:"isSelected"`
	DataType    DataType `yaml:"type" json:"dataType,omitempty"`

	// Reference — имя сущности-справочника для TypeReference.
	Reference string `yaml:"reference,omitempty" json:"reference,omitempty"`
	Required  bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Upper     bool   `yaml:"upper,omitempty" json:"upper,omitempty"`
	// AutoCode — код, который окончательно присваивает бэкенд.
	AutoCode bool   `yaml:"autoCode,omitempty" json:"autoCode,omitempty"`
	ReadOnly bool   `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Sample   string `yaml:"sample,omitempty" json:"sample,omitempty"`
}

// Participates — поле участвует в колонках таблицы и в файлах импорта/экспорта.
func (f FieldDescriptor) Participates() bool {
	return f.IsDisplayed && f.IsSelected
}

// Type возвращает тип поля, по умолчанию строка.
func (f FieldDescriptor) Type() DataType {
	if f.DataType == "" {
		return TypeString
	}
	return f.DataType
}

// DisplayedFields сохраняет порядок дескрипторов.
func DisplayedFields(descriptors []FieldDescriptor) []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Participates() {
			out = append(out, d)
		}
	}
	return out
}

// ReferenceSpec описывает справочник, подгружаемый для внешнего ключа.
type ReferenceSpec struct {
	Entity     string `json:"entity"`
	Endpoint   string `json:"endpoint"`
	ValueField string `json:"valueField"`
	CodeField  string `json:"codeField"`
	NameField  string `json:"nameField"`
}
