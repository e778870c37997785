package services

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations"
	"freight-portal/internal/registry"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

type DialogMode string

const (
	DialogAdd  DialogMode = "add"
	DialogEdit DialogMode = "edit"
)

type DialogState string

const (
	DialogClosed     DialogState = "closed"
	DialogOpen       DialogState = "open"
	DialogValidating DialogState = "validating"
	DialogSubmitting DialogState = "submitting"
)

// DialogView — то, что фронтенд рисует в модальном окне.
type DialogView struct {
	Mode    DialogMode                 `json:"mode"`
	Title   string                     `json:"title"`
	Fields  []entities.FieldDescriptor `json:"fields"`
	Values  entities.Record            `json:"values"`
	Options map[string][]Option        `json:"options"`
}

// CommitFunc вызывается после успешного сохранения записи.
type CommitFunc func(ctx context.Context, rec entities.Record, mode DialogMode)

// RecordDialog — форма добавления/редактирования одной записи.
// Переходы: closed -> open -> validating -> submitting -> closed.
type RecordDialog struct {
	entity   registry.Entity
	provider integrations.RecordProvider
	validate *validator.Validate
	onCommit CommitFunc
	logger   *zap.Logger

	mu       sync.Mutex
	state    DialogState
	mode     DialogMode
	original entities.Record
}

func NewRecordDialog(
	entity registry.Entity,
	provider integrations.RecordProvider,
	validate *validator.Validate,
	onCommit CommitFunc,
	logger *zap.Logger,
) *RecordDialog {
	return &RecordDialog{
		entity:   entity,
		provider: provider,
		validate: validate,
		onCommit: onCommit,
		logger:   logger,
		state:    DialogClosed,
	}
}

// Open открывает форму; повторное открытие сбрасывает предыдущее состояние.
func (d *RecordDialog) Open(mode DialogMode, existing entities.Record, refs ReferenceIndex) (DialogView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == DialogValidating || d.state == DialogSubmitting {
		return DialogView{}, apperrors.ErrDialogBusy
	}

	values := entities.Record{}
	title := "Add " + d.entity.Title()
	if mode == DialogEdit {
		if existing == nil {
			return DialogView{}, apperrors.ErrNotFound
		}
		if _, ok := existing.ID(d.entity.IDField()); !ok {
			return DialogView{}, apperrors.ErrMissingIdentity
		}
		values = existing.Clone()
		title = "Edit " + d.entity.Title()
	} else {
		mode = DialogAdd
	}

	d.state = DialogOpen
	d.mode = mode
	d.original = values.Clone()

	return DialogView{
		Mode:    mode,
		Title:   title,
		Fields:  d.entity.EditableFields(),
		Values:  values,
		Options: refs.Options(),
	}, nil
}

// Cancel закрывает форму без побочных эффектов.
func (d *RecordDialog) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DialogOpen {
		d.state = DialogClosed
		d.original = nil
	}
}

func (d *RecordDialog) State() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *RecordDialog) Mode() DialogMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Submit валидирует значения, отправляет запись и при успехе закрывает форму.
// При любой ошибке форма остаётся открытой.
func (d *RecordDialog) Submit(ctx context.Context, session types.Session, values map[string]any) (entities.Record, error) {
	d.mu.Lock()
	switch d.state {
	case DialogClosed:
		d.mu.Unlock()
		return nil, apperrors.ErrDialogClosed
	case DialogValidating, DialogSubmitting:
		d.mu.Unlock()
		return nil, apperrors.ErrDialogBusy
	}
	d.state = DialogValidating
	mode := d.mode
	original := d.original.Clone()
	d.mu.Unlock()

	// поля, не пришедшие с формы, берутся из исходной записи
	form := normalizeFormValues(d.entity, original.Merge(entities.Record(values)))
	if err := validateRecord(d.validate, d.entity, form); err != nil {
		d.setState(DialogOpen)
		return nil, err
	}

	if mode == DialogEdit {
		keepUnchanged(form, original, values)
	}

	payload := d.buildPayload(mode, session, original, form)
	if payload == nil {
		d.setState(DialogOpen)
		return nil, apperrors.ErrMissingIdentity
	}

	d.setState(DialogSubmitting)

	var (
		saved entities.Record
		err   error
	)
	if mode == DialogAdd {
		saved, err = d.provider.CreateRecord(ctx, d.entity.Endpoint(), payload)
	} else {
		saved, err = d.provider.UpdateRecord(ctx, d.entity.Endpoint(), payload)
	}
	if err != nil {
		d.logger.Warn("Не удалось сохранить запись",
			zap.String("entity", d.entity.Name()),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
		d.setState(DialogOpen)
		return nil, err
	}

	merged := payload.Merge(saved)

	d.mu.Lock()
	d.state = DialogClosed
	d.original = nil
	d.mu.Unlock()

	if d.onCommit != nil {
		d.onCommit(ctx, merged, mode)
	}
	return merged, nil
}

// buildPayload собирает тело POST/PUT. Версию не увеличиваем: её ведёт бэкенд.
func (d *RecordDialog) buildPayload(mode DialogMode, session types.Session, original, form entities.Record) entities.Record {
	idField := d.entity.IDField()

	if mode == DialogAdd {
		payload := form.Clone()
		stampSession(payload, session)
		payload["version"] = 0
		// у новой записи нет идентификатора, даже если он совпал с полем сессии
		delete(payload, idField)
		fillAutoCodes(d.entity, payload)
		return payload
	}

	id, ok := original.ID(idField)
	if !ok {
		return nil
	}
	payload := original.Merge(form)
	payload[idField] = original[idField]
	if _, ok := original["version"]; ok {
		payload["version"] = original["version"]
	} else {
		payload["version"] = 0
	}
	payload["updatedBy"] = session.UserID
	d.logger.Debug("Обновление записи", zap.String("entity", d.entity.Name()), zap.String("id", id))
	return payload
}

func (d *RecordDialog) setState(s DialogState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}
