package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations"
	"freight-portal/internal/registry"
	"freight-portal/internal/repositories"
	"freight-portal/pkg/types"
)

const (
	labelUnknown = "Unknown"
	labelNotSet  = "Not set"
)

// Option — элемент выпадающего списка формы.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Code  string `json:"code,omitempty"`
	Name  string `json:"name,omitempty"`
}

// ReferenceList — загруженный справочник для одного внешнего ключа.
type ReferenceList struct {
	Spec    entities.ReferenceSpec
	Options []Option

	byValue map[string]int
	byText  map[string]string
}

func NewReferenceList(spec entities.ReferenceSpec, options []Option) *ReferenceList {
	l := &ReferenceList{
		Spec:    spec,
		Options: options,
		byValue: make(map[string]int, len(options)),
		byText:  make(map[string]string, len(options)*3),
	}
	for i, o := range options {
		l.byValue[o.Value] = i
	}
	// подписи важнее кодов, коды важнее названий
	for i := len(options) - 1; i >= 0; i-- {
		o := options[i]
		for _, key := range []string{o.Name, o.Code, o.Label} {
			if k := normalizeKey(key); k != "" {
				l.byText[k] = o.Value
			}
		}
	}
	return l
}

// Label превращает значение внешнего ключа в "{code} - {name}".
func (l *ReferenceList) Label(value any) string {
	v := entities.Stringify(value)
	if v == "" || v == "0" {
		return labelNotSet
	}
	if l == nil {
		return labelUnknown
	}
	if i, ok := l.byValue[v]; ok {
		return l.Options[i].Label
	}
	return labelUnknown
}

// Resolve — обратное преобразование для импорта: принимает id,
// подпись, код или название.
func (l *ReferenceList) Resolve(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" || l == nil {
		return "", false
	}
	if _, ok := l.byValue[text]; ok {
		return text, true
	}
	v, ok := l.byText[normalizeKey(text)]
	return v, ok
}

// ReferenceIndex — справочники страницы по имени поля-ссылки.
type ReferenceIndex map[string]*ReferenceList

func (idx ReferenceIndex) Label(field string, value any) string {
	return idx[field].Label(value)
}

// Options — выпадающие списки для формы.
func (idx ReferenceIndex) Options() map[string][]Option {
	out := make(map[string][]Option, len(idx))
	for field, l := range idx {
		if l == nil {
			out[field] = []Option{}
			continue
		}
		out[field] = append([]Option{}, l.Options...)
	}
	return out
}

type ReferenceServiceInterface interface {
	Load(ctx context.Context, session types.Session, spec entities.ReferenceSpec) *ReferenceList
	Index(ctx context.Context, session types.Session, entity registry.Entity) ReferenceIndex
	Invalidate(ctx context.Context, companyID uint64, entity string) error
}

type ReferenceService struct {
	registry *registry.Registry
	provider integrations.RecordProvider
	cache    repositories.CacheRepositoryInterface
	ttl      time.Duration
	logger   *zap.Logger
}

func NewReferenceService(
	reg *registry.Registry,
	provider integrations.RecordProvider,
	cache repositories.CacheRepositoryInterface,
	ttl time.Duration,
	logger *zap.Logger,
) ReferenceServiceInterface {
	return &ReferenceService{
		registry: reg,
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.Named("references"),
	}
}

func referenceCacheKey(companyID uint64, entity string) string {
	return fmt.Sprintf("refs:%d:%s", companyID, entity)
}

// Load никогда не возвращает ошибку: сбой логируется, список пустой.
func (s *ReferenceService) Load(ctx context.Context, session types.Session, spec entities.ReferenceSpec) *ReferenceList {
	key := referenceCacheKey(session.CompanyID, spec.Entity)

	if raw, err := s.cache.Get(ctx, key); err == nil {
		var options []Option
		if err := json.Unmarshal([]byte(raw), &options); err == nil {
			return NewReferenceList(spec, options)
		}
		s.logger.Warn("Повреждённая запись кеша справочника", zap.String("key", key))
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("Кеш справочников недоступен", zap.String("key", key), zap.Error(err))
	}

	records, err := s.provider.ListRecords(ctx, spec.Endpoint, integrations.DefaultListRequest())
	if err != nil {
		s.logger.Error("Не удалось загрузить справочник",
			zap.String("entity", spec.Entity),
			zap.Uint64("companyID", session.CompanyID),
			zap.Error(err),
		)
		return NewReferenceList(spec, []Option{})
	}

	options := make([]Option, 0, len(records))
	for _, rec := range records {
		value, ok := rec.ID(spec.ValueField)
		if !ok {
			continue
		}
		code := entities.Stringify(rec[spec.CodeField])
		name := entities.Stringify(rec[spec.NameField])
		options = append(options, Option{Value: value, Label: referenceLabel(code, name, value), Code: code, Name: name})
	}

	if raw, err := json.Marshal(options); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.Warn("Не удалось сохранить справочник в кеш", zap.String("key", key), zap.Error(err))
		}
	}
	return NewReferenceList(spec, options)
}

// Index грузит справочники всех полей-ссылок сущности параллельно.
func (s *ReferenceService) Index(ctx context.Context, session types.Session, entity registry.Entity) ReferenceIndex {
	fields := entity.ReferenceFields()
	idx := make(ReferenceIndex, len(fields))
	if len(fields) == 0 {
		return idx
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fields {
		spec, err := s.registry.ReferenceSpec(f)
		if err != nil {
			s.logger.Error("Поле ссылается на неизвестный справочник", zap.String("field", f.FieldName), zap.Error(err))
			idx[f.FieldName] = NewReferenceList(entities.ReferenceSpec{Entity: f.Reference}, []Option{})
			continue
		}
		f := f
		g.Go(func() error {
			list := s.Load(gctx, session, spec)
			mu.Lock()
			idx[f.FieldName] = list
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return idx
}

func (s *ReferenceService) Invalidate(ctx context.Context, companyID uint64, entity string) error {
	return s.cache.Del(ctx, referenceCacheKey(companyID, entity))
}

func referenceLabel(code, name, value string) string {
	switch {
	case code != "" && name != "":
		return code + " - " + name
	case code != "":
		return code
	case name != "":
		return name
	}
	return value
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
