package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"training-planner-backend/internal/availability"
	"training-planner-backend/internal/catalog"
	"training-planner-backend/internal/ledger"
	"training-planner-backend/internal/model"
	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/saga"
)

// ReplaceRequest edits the resource set or the dates of an event.
type ReplaceRequest struct {
	EventName string                     `json:"event_name" validate:"max=256"`
	StartDate string                     `json:"start_date" validate:"required"`
	EndDate   string                     `json:"end_date" validate:"required"`
	ToDelete  []availability.ResourceRef `json:"to_delete"`
	ToInclude []availability.ResourceRef `json:"to_include"`
}

// ownRows hides the event-driven rows of one event from an interval source,
// so an event never blocks itself while it is being edited.
type ownRows struct {
	src    availability.IntervalSource
	ev     model.Event
	linked map[int64]model.EventResource
}

func (o ownRows) Overlapping(ctx context.Context, resourceID int64, start time.Time, end *time.Time) ([]model.ResourceStatusHistory, error) {
	rows, err := o.src.Overlapping(ctx, resourceID, start, end)
	if err != nil {
		return nil, err
	}
	if _, ok := o.linked[resourceID]; !ok {
		return rows, nil
	}
	kept := rows[:0]
	for _, r := range rows {
		if o.owned(r) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

func (o ownRows) owned(r model.ResourceStatusHistory) bool {
	if r.EndDate == nil || !isEventDriven(r.StatusType) {
		return false
	}
	return parse.Day(r.StartDate).Equal(parse.Day(o.ev.StartDate)) &&
		parse.Day(*r.EndDate).Equal(parse.Day(o.ev.EndDate))
}

func isEventDriven(status string) bool {
	for _, s := range model.EventDrivenStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ReplaceEventResources drops and adds resources of an event. When the dates
// differ from the stored ones the retained resources move to the new range
// as well. Added resources are checked against the new range; any conflict
// rejects the whole edit.
func (c *Coordinator) ReplaceEventResources(ctx context.Context, eventID int64, req ReplaceRequest, user string) Result {
	return c.run(ctx, "replace-event-resources", func(ctx context.Context, s *scope) (Result, error) {
		if err := c.validate.Struct(req); err != nil {
			return Result{}, c.invalid(err)
		}
		start, end, err := parse.Range(req.StartDate, req.EndDate)
		if err != nil {
			return Result{}, precondition("%v", err)
		}
		ev, err := loadEvent(ctx, s.tx, eventID)
		if err != nil {
			return Result{}, err
		}
		if ev.Status == model.StatusExecuted {
			return Result{}, precondition("Event %d has already been executed; its resources cannot change.", eventID)
		}

		var links []model.EventResource
		if err := s.tx.WithContext(ctx).Where("event_id = ?", eventID).Order("id").Find(&links).Error; err != nil {
			return Result{}, fmt.Errorf("failed to read links of event %d: %w", eventID, err)
		}
		linked := make(map[int64]model.EventResource, len(links))
		for _, l := range links {
			linked[l.ResourceID] = l
		}

		dropSet := make(map[int64]bool)
		var dropped []int64
		for _, ref := range req.ToDelete {
			if _, ok := linked[ref.ResourceID]; !ok || dropSet[ref.ResourceID] {
				continue
			}
			dropSet[ref.ResourceID] = true
			dropped = append(dropped, ref.ResourceID)
		}

		datesChanged := !parse.Day(ev.StartDate).Equal(start) || !parse.Day(ev.EndDate).Equal(end)
		var moved []model.EventResource
		if datesChanged {
			for _, l := range links {
				if !dropSet[l.ResourceID] {
					moved = append(moved, l)
				}
			}
		}

		sel := availability.Selections{}
		seen := make(map[int64]bool)
		for _, ref := range req.ToInclude {
			if ref.ResourceID <= 0 || seen[ref.ResourceID] {
				continue
			}
			if _, ok := linked[ref.ResourceID]; ok && !dropSet[ref.ResourceID] {
				continue
			}
			seen[ref.ResourceID] = true
			sel["included"] = append(sel["included"], ref)
		}
		for _, l := range moved {
			sel["retained"] = append(sel["retained"], availability.ResourceRef{ResourceID: l.ResourceID})
		}

		sg := saga.New("replace-event-resources")
		checker := availability.New(s.catalog, ownRows{src: s.ledger, ev: *ev, linked: linked})
		report, err := checker.Check(ctx, sel, start, end)
		if err != nil {
			return Result{}, err
		}
		if report.Blocked() {
			sg.Reject("conflict")
			return Result{}, &ConflictError{Conflicts: report.Conflicts}
		}
		var added []int64
		for _, cand := range report.Reservable {
			if cand.Category == "included" {
				added = append(added, cand.ResourceID)
			}
		}
		var skipped []int64
		addedSet := make(map[int64]bool, len(added))
		for _, id := range added {
			addedSet[id] = true
		}
		for _, ref := range sel["included"] {
			if !addedSet[ref.ResourceID] {
				skipped = append(skipped, ref.ResourceID)
			}
		}

		data := map[string]any{"removed": dropped, "added": added, "moved": linkIDs(moved), "skipped": skipped}
		if len(dropped) == 0 && len(added) == 0 && !datesChanged {
			sg.Reject("no changes")
			return Result{Message: fmt.Sprintf("Event %d has no resource changes.", eventID), EventID: eventID, Data: data}, nil
		}

		removeIDs := append(append([]int64{}, dropped...), linkIDs(moved)...)
		if len(removeIDs) > 0 {
			oldRows, err := s.ledger.ForEvent(ctx, *ev, removeIDs)
			if err != nil {
				return Result{}, err
			}
			err = sg.Step(ctx, "drop-ledger", func(ctx context.Context) error {
				if len(oldRows) == 0 {
					return nil
				}
				ids := make([]int64, len(oldRows))
				for i, r := range oldRows {
					ids[i] = r.ID
				}
				_, err := s.ledger.Delete(ctx, ledger.Filter{IDs: ids})
				return err
			}, func(ctx context.Context) error {
				return s.ledger.Restore(ctx, oldRows)
			})
			if err != nil {
				return Result{}, s.fail(ctx, sg, err)
			}

			var oldLinks []model.EventResource
			for _, id := range removeIDs {
				oldLinks = append(oldLinks, linked[id])
			}
			err = sg.Step(ctx, "drop-links", func(ctx context.Context) error {
				return s.tx.WithContext(ctx).
					Where("event_id = ? AND resource_id IN ?", eventID, removeIDs).
					Delete(&model.EventResource{}).Error
			}, restoreAll(s.tx, oldLinks))
			if err != nil {
				return Result{}, s.fail(ctx, sg, err)
			}
		}

		if datesChanged {
			prev := *ev
			lead := parse.DaysBetween(ev.ConfirmationDeadline, ev.StartDate)
			err = sg.Step(ctx, "event-dates", func(ctx context.Context) error {
				return updateEventDates(ctx, s.tx, eventID, start, end, start.AddDate(0, 0, -lead))
			}, func(ctx context.Context) error {
				return updateEventDates(ctx, s.tx, eventID, prev.StartDate, prev.EndDate, prev.ConfirmationDeadline)
			})
			if err != nil {
				return Result{}, s.fail(ctx, sg, err)
			}
		}

		details := req.EventName
		if details == "" {
			details = ev.Name
		}
		writes := make([]model.EventResource, 0, len(moved)+len(added))
		for _, l := range moved {
			writes = append(writes, model.EventResource{EventID: eventID, ResourceID: l.ResourceID, AssignStatus: l.AssignStatus, CreatedBy: l.CreatedBy})
		}
		for _, id := range added {
			writes = append(writes, model.EventResource{EventID: eventID, ResourceID: id, AssignStatus: model.StatusReserved, CreatedBy: user})
		}

		for _, w := range writes {
			var rowID int64
			err = sg.Step(ctx, fmt.Sprintf("add-ledger:%d", w.ResourceID), func(ctx context.Context) error {
				id, err := s.ledger.Record(ctx, ledger.Entry{
					ResourceID: w.ResourceID,
					StatusType: w.AssignStatus,
					StartDate:  start,
					EndDate:    &end,
					Details:    details,
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
		for _, w := range writes {
			link := w
			err = sg.Step(ctx, fmt.Sprintf("add-link:%d", w.ResourceID), func(ctx context.Context) error {
				return s.tx.WithContext(ctx).Create(&link).Error
			}, func(ctx context.Context) error {
				return s.tx.WithContext(ctx).Delete(&model.EventResource{}, "id = ?", link.ID).Error
			})
			if err != nil {
				return Result{}, s.fail(ctx, sg, err)
			}
		}

		sg.Commit()
		s.note(model.MessageTypeInformation, "Event ID: (%d) has been updated", eventID)
		return Result{Message: fmt.Sprintf("Event %d has been updated successfully.", eventID), EventID: eventID, Data: data}, nil
	})
}

func updateEventDates(ctx context.Context, tx *gorm.DB, eventID int64, start, end, deadline time.Time) error {
	return tx.WithContext(ctx).Model(&model.Event{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"event_start_date":            parse.Day(start),
			"event_end_date":              parse.Day(end),
			"event_confirmation_deadline": parse.Day(deadline),
		}).Error
}

func linkIDs(links []model.EventResource) []int64 {
	ids := make([]int64, len(links))
	for i, l := range links {
		ids[i] = l.ResourceID
	}
	return ids
}

func loadResource(ctx context.Context, c *catalog.Catalog, id int64) (*model.Resource, error) {
	res, err := c.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "Resource", ID: id}
		}
		return nil, fmt.Errorf("failed to load resource %d: %w", id, err)
	}
	return res, nil
}

// DisableResource takes a resource out of service. A resource still held by
// a Reserved or Programmed event cannot be disabled.
func (c *Coordinator) DisableResource(ctx context.Context, resourceID int64) Result {
	return c.run(ctx, "disable-resource", func(ctx context.Context, s *scope) (Result, error) {
		res, err := loadResource(ctx, s.catalog, resourceID)
		if err != nil {
			return Result{}, err
		}

		var busy []model.EventResource
		err = s.tx.WithContext(ctx).
			Where("resource_id = ? AND assign_status IN ?", resourceID, []string{model.StatusReserved, model.StatusProgrammed}).
			Order("event_id").Limit(1).
			Find(&busy).Error
		if err != nil {
			return Result{}, fmt.Errorf("failed to check assignments of resource %d: %w", resourceID, err)
		}
		if len(busy) > 0 {
			return Result{}, precondition("Resource %d is assigned to event %d and cannot be disabled.", resourceID, busy[0].EventID)
		}

		today := c.today()
		future := ledger.Filter{ResourceIDs: []int64{resourceID}, StartingFrom: &today}
		rows, err := s.ledger.Find(ctx, future)
		if err != nil {
			return Result{}, err
		}

		sg := saga.New("disable-resource")
		err = sg.Step(ctx, "ledger", func(ctx context.Context) error {
			_, err := s.ledger.Delete(ctx, future)
			return err
		}, func(ctx context.Context) error {
			return s.ledger.Restore(ctx, rows)
		})
		if err != nil {
			return Result{}, s.fail(ctx, sg, err)
		}
		err = sg.Step(ctx, "status", func(ctx context.Context) error {
			return s.catalog.SetStatus(ctx, resourceID, model.ResourceInactive)
		}, func(ctx context.Context) error {
			return s.catalog.SetStatus(ctx, resourceID, res.Status)
		})
		if err != nil {
			return Result{}, s.fail(ctx, sg, err)
		}
		sg.Commit()

		s.note(model.MessageTypeInformation, "Resource ID: (%d) has been disabled", resourceID)
		return Result{
			Message: fmt.Sprintf("Resource %d has been disabled successfully.", resourceID),
			Data:    map[string]any{"resource_id": resourceID, "released": len(rows)},
		}, nil
	})
}

// ReasonFree releases a manual ledger row.
const ReasonFree = "free"

// ResourceUpdate is a manual edit of a resource's ledger.
type ResourceUpdate struct {
	ResourceID       int64  `json:"resource_id" validate:"required,gt=0"`
	TemporalStatusID int64  `json:"temporal_status_id" validate:"gte=0"`
	UpdateReason     string `json:"updateReason" validate:"required,max=64"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	InactiveReason   string `json:"inactiveReason" validate:"max=512"`
}

// UpdateResource frees an existing manual ledger row or records a new one.
// Rows written by events can only change through the event commands.
func (c *Coordinator) UpdateResource(ctx context.Context, req ResourceUpdate, user string) Result {
	return c.run(ctx, "update-resource", func(ctx context.Context, s *scope) (Result, error) {
		if err := c.validate.Struct(req); err != nil {
			return Result{}, c.invalid(err)
		}
		res, err := loadResource(ctx, s.catalog, req.ResourceID)
		if err != nil {
			return Result{}, err
		}
		if !res.Active() {
			return Result{}, precondition("Resource is inactive, cannot update inactive resources.")
		}
		reason := strings.TrimSpace(req.UpdateReason)

		if req.TemporalStatusID != 0 {
			row, err := s.ledger.Get(ctx, req.TemporalStatusID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return Result{}, &NotFoundError{Kind: "Resource status", ID: req.TemporalStatusID}
				}
				return Result{}, fmt.Errorf("failed to load resource status %d: %w", req.TemporalStatusID, err)
			}
			if row.ResourceID != req.ResourceID {
				return Result{}, &NotFoundError{Kind: "Resource status", ID: req.TemporalStatusID}
			}
			if isEventDriven(row.StatusType) {
				return Result{}, precondition("The resource is programmed for an event; update event resources instead.")
			}
			if !strings.EqualFold(reason, ReasonFree) {
				return Result{}, precondition("The resource must be released free before updating to a different status.")
			}
			if _, err := s.ledger.Delete(ctx, ledger.Filter{ID: row.ID}); err != nil {
				return Result{}, err
			}
			s.note(model.MessageTypeInformation, "Temporal status for resource ID: %d has been deleted", req.ResourceID)
			return Result{
				Message: fmt.Sprintf("Resource status (ID: %d) has been deleted successfully.", row.ID),
				Data:    map[string]any{"temporal_status_id": row.ID},
			}, nil
		}

		if strings.EqualFold(reason, ReasonFree) {
			return Result{}, precondition("There is no resource status to release.")
		}
		if isEventDriven(reason) {
			return Result{}, precondition("Status %s is managed by events; update event resources instead.", reason)
		}
		start, err := parse.Date(req.StartDate)
		if err != nil {
			return Result{}, precondition("%v", err)
		}
		end, err := parse.OptionalDate(req.EndDate)
		if err != nil {
			return Result{}, precondition("%v", err)
		}
		if end != nil && end.Before(start) {
			return Result{}, precondition("end date %s is before start date %s", req.EndDate, req.StartDate)
		}
		id, err := s.ledger.Record(ctx, ledger.Entry{
			ResourceID: req.ResourceID,
			StatusType: reason,
			StartDate:  start,
			EndDate:    end,
			Details:    req.InactiveReason,
			CreatedBy:  user,
		})
		if err != nil {
			return Result{}, err
		}
		s.note(model.MessageTypeMessage, "Temporal status for resource ID: %d has been created", req.ResourceID)
		return Result{
			Message: fmt.Sprintf("New resource status for resource ID: %d has been created successfully.", req.ResourceID),
			Data:    map[string]any{"temporal_status_id": id},
		}, nil
	})
}

// CreateResource adds a resource of the given kind through the catalog.
func (c *Coordinator) CreateResource(ctx context.Context, kind string, attrs map[string]any) Result {
	return c.run(ctx, "create-resource", func(ctx context.Context, s *scope) (Result, error) {
		created, err := s.catalog.Create(ctx, kind, attrs)
		if err != nil {
			for _, known := range []error{catalog.ErrUnknownKind, catalog.ErrUnknownCategory, catalog.ErrInvalidInput, catalog.ErrNameTaken} {
				if errors.Is(err, known) {
					return Result{}, precondition("%v", err)
				}
			}
			return Result{}, err
		}
		s.note(model.MessageTypeMessage, "A new resource %s (%s) has been created", created.Name, created.Kind)
		return Result{
			Message: created.Message,
			Data: map[string]any{
				"resource_id": created.ResourceID,
				"kind":        created.Kind,
				"reused":      created.Reused,
				"room_id":     created.RoomID,
			},
		}, nil
	})
}
