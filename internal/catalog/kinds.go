package catalog

import (
	"sort"

	"training-planner-backend/internal/model"
)

// ColumnType selects how an attribute value is coerced before insert.
type ColumnType int

const (
	Text ColumnType = iota
	Int
	Bool
)

// Column maps one storage column to the attribute that feeds it.
type Column struct {
	Name  string
	Field string
	Type  ColumnType
}

// Kind describes how one resource category is stored.
type Kind struct {
	Name       string
	CategoryID int64
	Table      string
	// CategoryField is the attribute carrying the category id.
	CategoryField string
	// NameField is the attribute carrying the display name.
	NameField string
	// LocationField, when set, feeds resources.location.
	LocationField string
	// StationaryField, when set and equal to STATIONARY, links the new
	// resource to the room named by its location.
	StationaryField string
	Columns         []Column
	SuccessMessage  string
}

func text(name string) Column            { return Column{Name: name, Field: name, Type: Text} }
func textFrom(name, field string) Column { return Column{Name: name, Field: field, Type: Text} }
func integer(name string) Column         { return Column{Name: name, Field: name, Type: Int} }
func intFrom(name, field string) Column  { return Column{Name: name, Field: field, Type: Int} }
func flag(name string) Column            { return Column{Name: name, Field: name, Type: Bool} }
func flagFrom(name, field string) Column { return Column{Name: name, Field: field, Type: Bool} }

var kinds = map[string]Kind{
	"room": {
		Name:          "room",
		CategoryID:    model.CategoryRoom,
		Table:         model.Room{}.TableName(),
		CategoryField: "category_id",
		NameField:     "room_name",
		LocationField: "room_location",
		Columns: []Column{
			integer("category_id"),
			text("room_name"),
			integer("room_capacity"),
			text("room_type"),
			text("room_location"),
		},
		SuccessMessage: "Room added successfully!",
	},
	"trainer": {
		Name:          "trainer",
		CategoryID:    model.CategoryTrainer,
		Table:         model.Trainer{}.TableName(),
		CategoryField: "category_id",
		NameField:     "trainerName",
		Columns: []Column{
			integer("category_id"),
			textFrom("trainer_name", "trainerName"),
			textFrom("topic_1", "topic1"),
			textFrom("topic_2", "topic2"),
			textFrom("topic_3", "topic3"),
			textFrom("topic_4", "topic4"),
			textFrom("topic_other", "topicOther"),
			flag("pt"),
			flag("sp"),
			flag("en"),
			textFrom("lang_other", "langOther"),
			flagFrom("travel", "travelAvailability"),
			flag("national"),
			flag("international"),
		},
		SuccessMessage: "Trainer added successfully!",
	},
	"vehicle": {
		Name:          "vehicle",
		CategoryID:    model.CategoryVehicle,
		Table:         model.Vehicle{}.TableName(),
		CategoryField: "veh_category_id",
		NameField:     "license",
		Columns: []Column{
			text("license"),
			intFrom("category_id", "veh_category_id"),
			text("veh_type"),
			text("other_veh_type"),
			integer("year"),
			integer("purchase_year"),
			text("brand"),
			text("model"),
			textFrom("vin", "VIN"),
			text("fuel_type"),
			text("admission_type"),
			integer("cylinders"),
			text("body_type"),
			text("transmission"),
			text("transmission_other"),
			text("engine_model"),
			text("engine_size"),
			textFrom("systems", "system"),
			flag("require_service"),
			text("service_type"),
			text("service_freq"),
		},
		SuccessMessage: "Vehicle added successfully!",
	},
	"equipment": {
		Name:            "equipment",
		CategoryID:      model.CategoryEquipment,
		Table:           model.Equipment{}.TableName(),
		CategoryField:   "equ_category_id",
		NameField:       "equipment_name",
		LocationField:   "equipment_location",
		StationaryField: "equipment_mobility",
		Columns: []Column{
			text("equipment_name"),
			text("equipment_sn"),
			integer("equ_category_id"),
			text("equipment_use"),
			text("equipment_type"),
			text("equipment_type_other"),
			text("equipment_mobility"),
			text("equipment_power"),
			flag("require_service"),
			text("service_type"),
			text("service_freq"),
		},
		SuccessMessage: "Equipment added successfully!",
	},
	"multimedia": {
		Name:          "multimedia",
		CategoryID:    model.CategoryMultimedia,
		Table:         model.Multimedia{}.TableName(),
		CategoryField: "mult_category_id",
		NameField:     "multimedia_name",
		Columns: []Column{
			text("multimedia_name"),
			text("multimedia_sn"),
			integer("mult_category_id"),
			text("multimedia_type"),
			text("multimedia_type_other"),
			text("multimedia_mobility"),
			text("multimedia_power"),
			flag("use_out_cta"),
		},
		SuccessMessage: "Multimedia added successfully!",
	},
	"workstation": {
		Name:          "workstation",
		CategoryID:    model.CategoryWorkstation,
		Table:         model.Workstation{}.TableName(),
		CategoryField: "work_category_id",
		NameField:     "workstation_name",
		Columns: []Column{
			text("workstation_name"),
			text("workstation_description"),
			integer("work_category_id"),
			integer("workstation_qty"),
			text("workstation_mobility"),
		},
		SuccessMessage: "Workstation added successfully!",
	},
}

// aliases accepts the plural selection keys used by event forms.
var aliases = map[string]string{
	"rooms":        "room",
	"trainers":     "trainer",
	"vehicles":     "vehicle",
	"workstations": "workstation",
}

// Lookup returns the kind registered under name or one of its aliases.
func Lookup(name string) (Kind, bool) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	k, ok := kinds[name]
	return k, ok
}

// KindNames lists the registered kinds in a stable order.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
