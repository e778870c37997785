// Package registry хранит статические описания всех справочников портала.
// Описания загружаются один раз при старте и дальше не меняются.
package registry

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"freight-portal/internal/entities"
	apperrors "freight-portal/pkg/errors"
)

//go:embed entities.yaml
var defaultDocument []byte

type lookupDoc struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type entityDoc struct {
	Name     string                     `yaml:"name"`
	Title    string                     `yaml:"title"`
	Endpoint string                     `yaml:"endpoint"`
	IDField  string                     `yaml:"idField"`
	Strategy string                     `yaml:"strategy"`
	RawRefs  bool                       `yaml:"exportRawReferences"`
	Lookup   *lookupDoc                 `yaml:"lookup"`
	Rules    map[string]string          `yaml:"rules"`
	Fields   []entities.FieldDescriptor `yaml:"fields"`
	Samples  []map[string]string        `yaml:"samples"`
}

type document struct {
	Entities []entityDoc `yaml:"entities"`
}

// Entity — неизменяемое описание одной сущности. Все методы отдают копии.
type Entity struct {
	name     string
	title    string
	endpoint string
	idField  string
	strategy string
	rawRefs  bool
	lookup   *lookupDoc
	rules    map[string]string
	fields   []entities.FieldDescriptor
	samples  []map[string]string
}

func (e Entity) Name() string     { return e.name }
func (e Entity) Title() string    { return e.title }
func (e Entity) Endpoint() string { return e.endpoint }
func (e Entity) IDField() string  { return e.idField }

// Strategy — переопределение стратегии импорта; пустая строка = по конфигу.
func (e Entity) Strategy() string { return e.strategy }

// RawReferences — выгружать внешние ключи идентификаторами, а не подписями.
func (e Entity) RawReferences() bool { return e.rawRefs }

func (e Entity) Descriptors() []entities.FieldDescriptor {
	return append([]entities.FieldDescriptor(nil), e.fields...)
}

func (e Entity) DisplayedFields() []entities.FieldDescriptor {
	return entities.DisplayedFields(e.fields)
}

func (e Entity) Field(name string) (entities.FieldDescriptor, bool) {
	for _, f := range e.fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return entities.FieldDescriptor{}, false
}

// EditableFields — поля, которые пользователь заполняет в форме.
func (e Entity) EditableFields() []entities.FieldDescriptor {
	out := make([]entities.FieldDescriptor, 0, len(e.fields))
	for _, f := range e.fields {
		if f.ReadOnly || f.FieldName == e.idField {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ReferenceFields — все внешние ключи, включая скрытые колонки.
func (e Entity) ReferenceFields() []entities.FieldDescriptor {
	var out []entities.FieldDescriptor
	for _, f := range e.fields {
		if f.Type() == entities.TypeReference {
			out = append(out, f)
		}
	}
	return out
}

func (e Entity) Rules() map[string]string {
	out := make(map[string]string, len(e.rules))
	for k, v := range e.rules {
		out[k] = v
	}
	return out
}

// Samples — строки для файла-образца. Если явно не заданы, собирается одна
// строка из значений sample у полей.
func (e Entity) Samples() []map[string]string {
	if len(e.samples) > 0 {
		out := make([]map[string]string, 0, len(e.samples))
		for _, s := range e.samples {
			row := make(map[string]string, len(s))
			for k, v := range s {
				row[k] = v
			}
			out = append(out, row)
		}
		return out
	}
	row := make(map[string]string)
	for _, f := range e.DisplayedFields() {
		row[f.FieldName] = f.Sample
	}
	return []map[string]string{row}
}

// Lookup сообщает, может ли сущность служить справочником для внешних ключей.
func (e Entity) Lookup() (entities.ReferenceSpec, bool) {
	if e.lookup == nil {
		return entities.ReferenceSpec{}, false
	}
	return entities.ReferenceSpec{
		Entity:     e.name,
		Endpoint:   e.endpoint,
		ValueField: e.idField,
		CodeField:  e.lookup.Code,
		NameField:  e.lookup.Name,
	}, true
}

type Registry struct {
	entities map[string]Entity
	order    []string
}

// Default загружает встроенный документ. Ошибка здесь — ошибка сборки,
// поэтому паникуем.
func Default() *Registry {
	r, err := Load(defaultDocument)
	if err != nil {
		panic("registry: " + err.Error())
	}
	return r
}

func Load(doc []byte) (*Registry, error) {
	var d document
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("ошибка разбора описания сущностей: %w", err)
	}

	r := &Registry{entities: make(map[string]Entity, len(d.Entities))}
	for _, ed := range d.Entities {
		if err := validateEntity(ed); err != nil {
			return nil, err
		}
		if _, dup := r.entities[ed.Name]; dup {
			return nil, fmt.Errorf("сущность %q описана дважды", ed.Name)
		}
		r.entities[ed.Name] = Entity{
			name:     ed.Name,
			title:    ed.Title,
			endpoint: ed.Endpoint,
			idField:  ed.IDField,
			strategy: ed.Strategy,
			rawRefs:  ed.RawRefs,
			lookup:   ed.Lookup,
			rules:    ed.Rules,
			fields:   ed.Fields,
			samples:  ed.Samples,
		}
		r.order = append(r.order, ed.Name)
	}

	// внешние ключи проверяем после загрузки всех сущностей
	for _, name := range r.order {
		for _, f := range r.entities[name].ReferenceFields() {
			target, ok := r.entities[f.Reference]
			if !ok {
				return nil, fmt.Errorf("%s.%s ссылается на неизвестную сущность %q", name, f.FieldName, f.Reference)
			}
			if target.lookup == nil {
				return nil, fmt.Errorf("%s.%s: у сущности %q не задан lookup", name, f.FieldName, f.Reference)
			}
		}
	}

	sort.Strings(r.order)
	return r, nil
}

func validateEntity(ed entityDoc) error {
	if strings.TrimSpace(ed.Name) == "" {
		return fmt.Errorf("у сущности не задано имя")
	}
	if ed.Endpoint == "" || ed.IDField == "" {
		return fmt.Errorf("сущность %q: endpoint и idField обязательны", ed.Name)
	}

	seen := make(map[string]bool, len(ed.Fields))
	for _, f := range ed.Fields {
		if f.FieldName == "" {
			return fmt.Errorf("сущность %q: поле без имени", ed.Name)
		}
		if seen[f.FieldName] {
			return fmt.Errorf("сущность %q: поле %q описано дважды", ed.Name, f.FieldName)
		}
		seen[f.FieldName] = true
		if f.Type() == entities.TypeReference && f.Reference == "" {
			return fmt.Errorf("сущность %q: у поля %q не указан справочник", ed.Name, f.FieldName)
		}
	}
	for field := range ed.Rules {
		if !seen[field] {
			return fmt.Errorf("сущность %q: правило для неизвестного поля %q", ed.Name, field)
		}
	}
	return nil
}

func (r *Registry) Get(name string) (Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownEntity, name)
	}
	return e, nil
}

// List возвращает имена сущностей в алфавитном порядке.
func (r *Registry) List() []string {
	return append([]string(nil), r.order...)
}

// ReferenceSpec строит описание справочника для поля-ссылки.
func (r *Registry) ReferenceSpec(f entities.FieldDescriptor) (entities.ReferenceSpec, error) {
	target, err := r.Get(f.Reference)
	if err != nil {
		return entities.ReferenceSpec{}, err
	}
	spec, ok := target.Lookup()
	if !ok {
		return entities.ReferenceSpec{}, fmt.Errorf("%w: %s не является справочником", apperrors.ErrUnknownEntity, f.Reference)
	}
	return spec, nil
}

// DependentsOf — сущности, у которых есть внешний ключ на name.
func (r *Registry) DependentsOf(name string) []string {
	var out []string
	for _, n := range r.order {
		for _, f := range r.entities[n].ReferenceFields() {
			if f.Reference == name {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
