// Package catalog maps the six category-specific resource schemas onto the
// generic resources table used by the ledger and the availability checker.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"training-planner-backend/internal/ledger"
	"training-planner-backend/internal/model"
	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/saga"
)

var (
	ErrUnknownKind     = errors.New("invalid resource type")
	ErrUnknownCategory = errors.New("invalid resource category id")
	ErrInvalidInput    = errors.New("invalid resource attributes")
	ErrNameTaken       = errors.New("resource name is used by another category")
)

// Stationary is the mobility value that ties equipment to a room.
const Stationary = "STATIONARY"

type resourceInput struct {
	Name       string `validate:"required,max=256"`
	CategoryID int64  `validate:"required,gt=0"`
	Status     string `validate:"oneof=Active Inactive"`
	Location   string `validate:"max=256"`
}

// Created describes the outcome of Create.
type Created struct {
	ResourceID int64
	Kind       string
	Name       string
	Reused     bool
	RoomID     int64
	Message    string
}

// Catalog reads and writes resources of every category.
type Catalog struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	validate *validator.Validate
	inTx     bool
}

// New returns a catalog bound to db.
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db, ledger: ledger.New(db), validate: validator.New()}
}

// WithTx returns a copy of the catalog that issues every statement on tx.
func (c *Catalog) WithTx(tx *gorm.DB) *Catalog {
	return &Catalog{db: tx, ledger: c.ledger.WithTx(tx), validate: c.validate, inTx: true}
}

// fail unwinds sg. Inside a transaction the rollback removes the writes.
func (c *Catalog) fail(ctx context.Context, sg *saga.Saga, err error) error {
	if c.inTx {
		return sg.Abandon(err)
	}
	return sg.Fail(ctx, err)
}

// Create inserts a resource of the given kind. A resource with the same
// display name is reused; otherwise a generic row is inserted first and
// removed again if the category-specific insert fails.
func (c *Catalog) Create(ctx context.Context, kindName string, attrs map[string]any) (*Created, error) {
	kind, ok := Lookup(kindName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kindName)
	}

	data := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		data[k] = v
	}

	categoryID := kind.CategoryID
	if v, ok := data[kind.CategoryField]; ok && v != nil {
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, kind.CategoryField, err)
		}
		if id, ok := n.(int64); ok {
			categoryID = id
		}
	}
	data[kind.CategoryField] = categoryID

	var count int64
	if err := c.db.WithContext(ctx).Model(&model.ResourceCategory{}).
		Where("resource_category_id = ?", categoryID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check resource category: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, categoryID)
	}

	in := resourceInput{
		Name:       toText(valueOrEmpty(data[kind.NameField])),
		CategoryID: categoryID,
		Status:     model.ResourceActive,
		Location:   toText(valueOrEmpty(data["location"])),
	}
	if kind.LocationField != "" {
		if loc := toText(valueOrEmpty(data[kind.LocationField])); loc != "" {
			in.Location = loc
		}
	}
	if s := toText(valueOrEmpty(data["status"])); s != "" {
		in.Status = s
	}
	if err := c.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, describe(err, kind))
	}

	row := make(map[string]any, len(kind.Columns)+1)
	for _, col := range kind.Columns {
		v, err := coerce(data[col.Field], col.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, col.Field, err)
		}
		row[col.Name] = v
	}

	out := &Created{Kind: kind.Name, Name: in.Name, Message: kind.SuccessMessage}
	sg := saga.New("create-resource")

	err := sg.Step(ctx, "resource", func(ctx context.Context) error {
		var existing []model.Resource
		if err := c.db.WithContext(ctx).Where("resource_name = ?", in.Name).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			if existing[0].CategoryID != categoryID {
				return fmt.Errorf("%w: %s", ErrNameTaken, in.Name)
			}
			out.ResourceID = existing[0].ID
			out.Reused = true
			return nil
		}
		res := model.Resource{Name: in.Name, CategoryID: categoryID, Status: in.Status, Location: in.Location}
		if err := c.db.WithContext(ctx).Create(&res).Error; err != nil {
			return err
		}
		out.ResourceID = res.ID
		return nil
	}, func(ctx context.Context) error {
		if out.Reused {
			return nil
		}
		return c.db.WithContext(ctx).Delete(&model.Resource{}, "resource_id = ?", out.ResourceID).Error
	})
	if err != nil {
		return nil, c.fail(ctx, sg, err)
	}

	err = sg.Step(ctx, "specific", func(ctx context.Context) error {
		row["resource_id"] = out.ResourceID
		return c.db.WithContext(ctx).Table(kind.Table).Create(row).Error
	}, func(ctx context.Context) error {
		if out.Reused {
			return nil
		}
		return c.db.WithContext(ctx).Exec("DELETE FROM "+kind.Table+" WHERE resource_id = ?", out.ResourceID).Error
	})
	if err != nil {
		return nil, c.fail(ctx, sg, err)
	}

	if kind.StationaryField != "" && strings.EqualFold(toText(valueOrEmpty(data[kind.StationaryField])), Stationary) {
		err = sg.Step(ctx, "room-link", func(ctx context.Context) error {
			var rooms []model.Room
			if err := c.db.WithContext(ctx).Where("room_name = ?", in.Location).Limit(1).Find(&rooms).Error; err != nil {
				return err
			}
			if len(rooms) == 0 {
				sg.Logger().Warn("no room matches equipment location, not linking", "location", in.Location, "resource_id", out.ResourceID)
				return nil
			}
			link := model.RoomEquipment{RoomID: rooms[0].ID, ResourceID: out.ResourceID}
			if err := c.db.WithContext(ctx).Create(&link).Error; err != nil {
				return err
			}
			out.RoomID = rooms[0].ID
			return nil
		}, nil)
		if err != nil {
			return nil, c.fail(ctx, sg, err)
		}
	}

	sg.Commit()
	return out, nil
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func describe(err error, kind Kind) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch field {
		case "Name":
			field = kind.NameField
		case "CategoryID":
			field = kind.CategoryField
		case "Status":
			field = "status"
		case "Location":
			field = "location"
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

// Get loads one generic resource row.
func (c *Catalog) Get(ctx context.Context, id int64) (*model.Resource, error) {
	var res model.Resource
	if err := c.db.WithContext(ctx).First(&res, "resource_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// Resources loads the generic rows for ids. Missing ids are absent from the map.
func (c *Catalog) Resources(ctx context.Context, ids []int64) (map[int64]model.Resource, error) {
	out := make(map[int64]model.Resource, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []model.Resource
	if err := c.db.WithContext(ctx).Where("resource_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// SetStatus changes the Active/Inactive flag of a resource.
func (c *Catalog) SetStatus(ctx context.Context, id int64, status string) error {
	res := c.db.WithContext(ctx).Model(&model.Resource{}).Where("resource_id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set status of resource %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ByCategory lists the generic rows of one category.
func (c *Catalog) ByCategory(ctx context.Context, categoryID int64) ([]model.Resource, error) {
	var rows []model.Resource
	if err := c.db.WithContext(ctx).Where("resource_category_id = ?", categoryID).Order("resource_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources of category %d: %w", categoryID, err)
	}
	return rows, nil
}

// Categories lists the known resource categories.
func (c *Catalog) Categories(ctx context.Context) ([]model.ResourceCategory, error) {
	var rows []model.ResourceCategory
	if err := c.db.WithContext(ctx).Order("resource_category_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActive returns the category-specific rows of the active resources of a kind.
func (c *Catalog) ListActive(ctx context.Context, kindName string) ([]map[string]any, error) {
	kind, ok := Lookup(kindName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kindName)
	}
	var rows []map[string]any
	err := c.db.WithContext(ctx).Table(kind.Table+" AS t").
		Select("t.*").
		Joins("INNER JOIN resources AS r ON t.resource_id = r.resource_id").
		Where("r.status = ?", model.ResourceActive).
		Order("t.resource_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active %s resources: %w", kind.Name, err)
	}
	return rows, nil
}

type roomEquipmentName struct {
	RoomID        int64
	EquipmentName *string
}

// ListWithStatus returns every row of a kind with its generic status and the
// ledger entry covering asOf (today when nil). Rooms also carry the names of
// their stationary equipment.
func (c *Catalog) ListWithStatus(ctx context.Context, kindName string, asOf *time.Time) ([]map[string]any, error) {
	kind, ok := Lookup(kindName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kindName)
	}

	var rows []map[string]any
	err := c.db.WithContext(ctx).Table(kind.Table + " AS t").
		Select("t.*, r.status").
		Joins("LEFT JOIN resources AS r ON t.resource_id = r.resource_id").
		Order("t.resource_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s resources: %w", kind.Name, err)
	}

	active, err := c.ledger.ActiveByResource(ctx, asOf)
	if err != nil {
		return nil, err
	}

	var equipment map[int64][]string
	if kind.Name == "room" {
		var names []roomEquipmentName
		err := c.db.WithContext(ctx).Table("room_equipment AS re").
			Select("re.room_id, e.equipment_name").
			Joins("LEFT JOIN equipment AS e ON re.resource_id = e.resource_id").
			Order("re.id").
			Scan(&names).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list room equipment: %w", err)
		}
		equipment = make(map[int64][]string)
		for _, n := range names {
			if n.EquipmentName != nil {
				equipment[n.RoomID] = append(equipment[n.RoomID], *n.EquipmentName)
			}
		}
	}

	for _, row := range rows {
		row["historical_status"] = nil
		row["temporal_status_id"] = nil
		row["start_date"] = nil
		row["end_date"] = nil
		if hist, ok := active[asInt64(row["resource_id"])]; ok {
			row["historical_status"] = hist.StatusType
			row["temporal_status_id"] = hist.ID
			row["start_date"] = parse.Format(hist.StartDate)
			if hist.EndDate != nil {
				row["end_date"] = parse.Format(*hist.EndDate)
			}
		}
		if equipment != nil {
			row["equipment_names"] = strings.Join(equipment[asInt64(row["room_id"])], ", ")
		}
	}
	return rows, nil
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case []byte:
		n, _ := toInt(string(x))
		i, _ := n.(int64)
		return i
	case string:
		n, _ := toInt(x)
		i, _ := n.(int64)
		return i
	}
	return 0
}
