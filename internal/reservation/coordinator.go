// Package reservation coordinates every write that changes which resources
// are reserved. Commands are serialised by a mutex and, unless configured
// otherwise, each runs in one database transaction together with its
// availability check. Multi-step writes go through a saga so that a failure
// part way leaves no trace even without the transaction.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"training-planner-backend/internal/availability"
	"training-planner-backend/internal/catalog"
	"training-planner-backend/internal/ledger"
	"training-planner-backend/internal/messagelog"
	"training-planner-backend/internal/metrics"
	"training-planner-backend/internal/model"
	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/saga"
)

// Options tunes the coordinator.
type Options struct {
	// ConfirmationDays is the default gap between the confirmation deadline
	// and the start of an event.
	ConfirmationDays int
	// TrainingTypes are the event types that track participants.
	TrainingTypes []string
	// Transactional runs every command inside a database transaction.
	Transactional bool
	Location      *time.Location
	Now           func() time.Time
}

// Coordinator is the only writer of events, event links and event-driven
// ledger rows.
type Coordinator struct {
	mu       sync.Mutex
	db       *gorm.DB
	ledger   *ledger.Ledger
	catalog  *catalog.Catalog
	messages *messagelog.Log
	validate *validator.Validate
	opts     Options
}

// New returns a coordinator writing through db. Messages are appended to
// messages once a command has committed.
func New(db *gorm.DB, messages *messagelog.Log, opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if messages == nil {
		messages = messagelog.New(db, nil)
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Coordinator{
		db:       db,
		ledger:   ledger.New(db),
		catalog:  catalog.New(db),
		messages: messages,
		validate: v,
		opts:     opts,
	}
}

type note struct {
	kind    string
	content string
}

// scope holds the handles one command writes through.
type scope struct {
	tx      *gorm.DB
	inTx    bool
	ledger  *ledger.Ledger
	catalog *catalog.Catalog
	checker *availability.Checker
	notes   []note
}

// note queues a message to append after the command succeeds.
func (s *scope) note(kind, format string, args ...any) {
	s.notes = append(s.notes, note{kind: kind, content: fmt.Sprintf(format, args...)})
}

// fail unwinds sg. Inside a transaction the rollback removes the writes.
func (s *scope) fail(ctx context.Context, sg *saga.Saga, err error) error {
	if s.inTx {
		return sg.Abandon(err)
	}
	return sg.Fail(ctx, err)
}

func (c *Coordinator) run(ctx context.Context, command string, fn func(context.Context, *scope) (Result, error)) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	began := time.Now()
	var (
		res Result
		s   *scope
	)
	body := func(tx *gorm.DB, inTx bool) error {
		s = &scope{tx: tx, inTx: inTx, ledger: c.ledger.WithTx(tx), catalog: c.catalog}
		if inTx {
			s.catalog = c.catalog.WithTx(tx)
		}
		s.checker = availability.New(s.catalog, s.ledger)
		var err error
		res, err = fn(ctx, s)
		return err
	}

	var err error
	if c.opts.Transactional {
		err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return body(tx, true)
		})
	} else {
		err = body(c.db, false)
	}
	metrics.CommandDuration.WithLabelValues(command, strconv.FormatBool(err == nil)).Observe(time.Since(began).Seconds())
	if err != nil {
		return failure(command, err)
	}

	for _, n := range s.notes {
		if _, err := c.messages.Append(ctx, n.kind, n.content); err != nil {
			slog.Warn("failed to log message", "command", command, "error", err)
		}
	}
	res.Success = true
	res.Code = CodeOK
	return res
}

func (c *Coordinator) today() time.Time {
	return parse.Today(c.opts.Now(), c.opts.Location)
}

func (c *Coordinator) isTraining(eventType string) bool {
	for _, t := range c.opts.TrainingTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (c *Coordinator) invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return precondition("Invalid request: %v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return precondition("Invalid request: %s", strings.Join(parts, ", "))
}

func loadEvent(ctx context.Context, tx *gorm.DB, id int64) (*model.Event, error) {
	var ev model.Event
	if err := tx.WithContext(ctx).First(&ev, "event_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "Event", ID: id}
		}
		return nil, fmt.Errorf("failed to load event %d: %w", id, err)
	}
	return &ev, nil
}

// EventRequest is the payload of CreateEvent.
type EventRequest struct {
	Name      string `json:"event_name" validate:"required,max=256"`
	NameOther string `json:"event_name_other" validate:"max=256"`
	Type      string `json:"event_type" validate:"required,max=64"`
	TypeOther string `json:"event_type_other" validate:"max=128"`
	StartDate string `json:"event_start_date" validate:"required"`
	EndDate   string `json:"event_end_date" validate:"required"`
	Status    string `json:"event_status" validate:"omitempty,oneof=Reserved Programmed"`
	// ConfirmationDays overrides the configured gap; nil keeps the default.
	ConfirmationDays *int                    `json:"event_confirmation_days" validate:"omitempty,gte=0"`
	MinParticipants  int                     `json:"min_part" validate:"gte=0"`
	Resources        availability.Selections `json:"resources"`
}

// CreateEvent inserts an event and reserves its selected resources. Nothing is
// written when any selected resource is blocked for the range.
func (c *Coordinator) CreateEvent(ctx context.Context, req EventRequest, user string) Result {
	return c.run(ctx, "create-event", func(ctx context.Context, s *scope) (Result, error) {
		if err := c.validate.Struct(req); err != nil {
			return Result{}, c.invalid(err)
		}
		start, end, err := parse.Range(req.StartDate, req.EndDate)
		if err != nil {
			return Result{}, precondition("%v", err)
		}
		status := req.Status
		if status == "" {
			status = model.StatusReserved
		}
		days := c.opts.ConfirmationDays
		if req.ConfirmationDays != nil {
			days = *req.ConfirmationDays
		}

		sg := saga.New("create-event")
		report, err := s.checker.Check(ctx, req.Resources, start, end)
		if err != nil {
			return Result{}, err
		}
		if report.Blocked() {
			sg.Reject("conflict")
			return Result{}, &ConflictError{Conflicts: report.Conflicts}
		}

		ev := model.Event{
			Name:                 req.Name,
			NameOther:            req.NameOther,
			Type:                 req.Type,
			TypeOther:            req.TypeOther,
			StartDate:            start,
			EndDate:              end,
			Status:               status,
			ConfirmationDeadline: start.AddDate(0, 0, -days),
			CreatedBy:            user,
		}
		err = sg.Step(ctx, "event", func(ctx context.Context) error {
			return s.tx.WithContext(ctx).Create(&ev).Error
		}, func(ctx context.Context) error {
			return s.tx.WithContext(ctx).Delete(&model.Event{}, "event_id = ?", ev.ID).Error
		})
		if err != nil {
			return Result{}, s.fail(ctx, sg, err)
		}

		if c.isTraining(ev.Type) {
			err = sg.Step(ctx, "participants", func(ctx context.Context) error {
				return s.tx.WithContext(ctx).Create(&model.Participants{
					EventID:              ev.ID,
					RequiredParticipants: req.MinParticipants,
				}).Error
			}, func(ctx context.Context) error {
				return s.tx.WithContext(ctx).Delete(&model.Participants{}, "event_id = ?", ev.ID).Error
			})
			if err != nil {
				return Result{}, s.fail(ctx, sg, err)
			}
		}

		for _, cand := range report.Reservable {
			var rowID int64
			err = sg.Step(ctx, fmt.Sprintf("ledger:%d", cand.ResourceID), func(ctx context.Context) error {
				id, err := s.ledger.Record(ctx, ledger.Entry{
					ResourceID: cand.ResourceID,
					StatusType: status,
					StartDate:  start,
					EndDate:    &end,
					Details:    ev.Name,
					CreatedBy:  user,
				})
				rowID = id
				return err
			}, func(ctx context.Context) error {
				_, err := s.ledger.Delete(ctx, ledger.Filter{ID: rowID})
				return err
			})
			if err != nil {
				return Result{}, s.fail(ctx, sg, err)
			}
		}

		for _, cand := range report.Reservable {
			link := model.EventResource{EventID: ev.ID, ResourceID: cand.ResourceID, AssignStatus: status, CreatedBy: user}
			err = sg.Step(ctx, fmt.Sprintf("link:%d", cand.ResourceID), func(ctx context.Context) error {
				return s.tx.WithContext(ctx).Create(&link).Error
			}, func(ctx context.Context) error {
				return s.tx.WithContext(ctx).Delete(&model.EventResource{}, "id = ?", link.ID).Error
			})
			if err != nil {
				return Result{}, s.fail(ctx, sg, err)
			}
		}

		sg.Commit()
		s.note(model.MessageTypeMessage, "A new event: Event(%d) %s has been created", ev.ID, ev.Name)

		reserved := make([]int64, len(report.Reservable))
		for i, cand := range report.Reservable {
			reserved[i] = cand.ResourceID
		}
		return Result{
			Message: "Event has been created successfully.",
			EventID: ev.ID,
			Data: map[string]any{
				"reserved": reserved,
				"skipped":  append(append([]int64{}, report.Inactive...), report.Unknown...),
			},
		}, nil
	})
}

// ConfirmEvent moves an event, its links and its ledger rows to Confirmed.
// Confirming a confirmed event repeats the same updates and succeeds.
func (c *Coordinator) ConfirmEvent(ctx context.Context, eventID int64) Result {
	return c.run(ctx, "confirm-event", func(ctx context.Context, s *scope) (Result, error) {
		ev, err := loadEvent(ctx, s.tx, eventID)
		if err != nil {
			return Result{}, err
		}
		if ev.Status == model.StatusExecuted {
			return Result{}, precondition("Event %d has already been executed and cannot be confirmed.", eventID)
		}
		changed := ev.Status != model.StatusConfirmed

		err = s.tx.WithContext(ctx).Model(&model.Event{}).
			Where("event_id = ?", eventID).
			Update("event_status", model.StatusConfirmed).Error
		if err != nil {
			return Result{}, fmt.Errorf("failed to confirm event %d: %w", eventID, err)
		}
		err = s.tx.WithContext(ctx).Model(&model.EventResource{}).
			Where("event_id = ?", eventID).
			Update("assign_status", model.StatusConfirmed).Error
		if err != nil {
			return Result{}, fmt.Errorf("failed to confirm resources of event %d: %w", eventID, err)
		}
		if _, err := s.ledger.SetStatusForEvent(ctx, *ev, model.StatusConfirmed); err != nil {
			return Result{}, err
		}

		if changed {
			s.note(model.MessageTypeInformation, "Event ID: (%d) has been confirmed", eventID)
		}
		return Result{Message: fmt.Sprintf("Event %d has been updated successfully.", eventID), EventID: eventID}, nil
	})
}

// CancelEvent removes an event with its ledger rows, links and participants.
func (c *Coordinator) CancelEvent(ctx context.Context, eventID int64) Result {
	return c.run(ctx, "cancel-event", func(ctx context.Context, s *scope) (Result, error) {
		ev, err := loadEvent(ctx, s.tx, eventID)
		if err != nil {
			return Result{}, err
		}
		rows, err := s.ledger.ForEvent(ctx, *ev, nil)
		if err != nil {
			return Result{}, err
		}
		var links []model.EventResource
		if err := s.tx.WithContext(ctx).Where("event_id = ?", eventID).Find(&links).Error; err != nil {
			return Result{}, fmt.Errorf("failed to read links of event %d: %w", eventID, err)
		}
		var parts []model.Participants
		if err := s.tx.WithContext(ctx).Where("event_id = ?", eventID).Find(&parts).Error; err != nil {
			return Result{}, fmt.Errorf("failed to read participants of event %d: %w", eventID, err)
		}

		sg := saga.New("cancel-event")
		err = sg.Step(ctx, "ledger", func(ctx context.Context) error {
			_, err := s.ledger.DeleteForEvent(ctx, *ev)
			return err
		}, func(ctx context.Context) error {
			return s.ledger.Restore(ctx, rows)
		})
		if err != nil {
			return Result{}, s.fail(ctx, sg, err)
		}
		err = sg.Step(ctx, "links", func(ctx context.Context) error {
			return s.tx.WithContext(ctx).Delete(&model.EventResource{}, "event_id = ?", eventID).Error
		}, restoreAll(s.tx, links))
		if err != nil {
			return Result{}, s.fail(ctx, sg, err)
		}
		err = sg.Step(ctx, "participants", func(ctx context.Context) error {
			return s.tx.WithContext(ctx).Delete(&model.Participants{}, "event_id = ?", eventID).Error
		}, restoreAll(s.tx, parts))
		if err != nil {
			return Result{}, s.fail(ctx, sg, err)
		}
		err = sg.Step(ctx, "event", func(ctx context.Context) error {
			return s.tx.WithContext(ctx).Delete(&model.Event{}, "event_id = ?", eventID).Error
		}, nil)
		if err != nil {
			return Result{}, s.fail(ctx, sg, err)
		}
		sg.Commit()

		s.note(model.MessageTypeInformation, "Event ID: (%d) has been deleted", eventID)
		return Result{Message: fmt.Sprintf("Event %d has been deleted successfully.", eventID), EventID: eventID}, nil
	})
}

// restoreAll re-inserts rows captured before a delete.
func restoreAll[T any](tx *gorm.DB, rows []T) saga.Action {
	return func(ctx context.Context) error {
		if len(rows) == 0 {
			return nil
		}
		restored := make([]T, len(rows))
		copy(restored, rows)
		return tx.WithContext(ctx).Create(&restored).Error
	}
}

// UpdateParticipants sets the number of inscribed participants.
func (c *Coordinator) UpdateParticipants(ctx context.Context, eventID int64, inscribed int) Result {
	return c.run(ctx, "update-participants", func(ctx context.Context, s *scope) (Result, error) {
		if inscribed < 0 {
			return Result{}, precondition("Inscribed participants cannot be negative.")
		}
		if _, err := loadEvent(ctx, s.tx, eventID); err != nil {
			return Result{}, err
		}
		res := s.tx.WithContext(ctx).Model(&model.Participants{}).
			Where("event_id = ?", eventID).
			Update("inscribed_participants", inscribed)
		if res.Error != nil {
			return Result{}, fmt.Errorf("failed to update participants of event %d: %w", eventID, res.Error)
		}
		if res.RowsAffected == 0 {
			return Result{}, precondition("Event %d does not track participants.", eventID)
		}
		s.note(model.MessageTypeInformation, "Participants for Event ID: (%d) has been updated", eventID)
		return Result{Message: fmt.Sprintf("Participants for event %d has been updated successfully.", eventID), EventID: eventID}, nil
	})
}

// EndEvent marks an event as executed and records the final participant
// count.
func (c *Coordinator) EndEvent(ctx context.Context, eventID int64, total int) Result {
	return c.run(ctx, "end-event", func(ctx context.Context, s *scope) (Result, error) {
		if total < 0 {
			return Result{}, precondition("Total participants cannot be negative.")
		}
		if _, err := loadEvent(ctx, s.tx, eventID); err != nil {
			return Result{}, err
		}
		err := s.tx.WithContext(ctx).Model(&model.Event{}).
			Where("event_id = ?", eventID).
			Update("event_status", model.StatusExecuted).Error
		if err != nil {
			return Result{}, fmt.Errorf("failed to close event %d: %w", eventID, err)
		}
		res := s.tx.WithContext(ctx).Model(&model.Participants{}).
			Where("event_id = ?", eventID).
			Update("total_part", total)
		if res.Error != nil {
			return Result{}, fmt.Errorf("failed to record participants of event %d: %w", eventID, res.Error)
		}
		if res.RowsAffected == 0 {
			if err := s.tx.WithContext(ctx).Create(&model.Participants{EventID: eventID, TotalPart: total}).Error; err != nil {
				return Result{}, fmt.Errorf("failed to record participants of event %d: %w", eventID, err)
			}
		}
		s.note(model.MessageTypeInformation, "Event ID: (%d) has been closed", eventID)
		return Result{Message: fmt.Sprintf("Event %d has been closed successfully.", eventID), EventID: eventID}, nil
	})
}
