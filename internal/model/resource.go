package model

// Resource statuses.
const (
	ResourceActive   = "Active"
	ResourceInactive = "Inactive"
)

// Resource category ids, seeded on a clean database.
const (
	CategoryRoom        int64 = 1
	CategoryTrainer     int64 = 2
	CategoryVehicle     int64 = 3
	CategoryEquipment   int64 = 4
	CategoryMultimedia  int64 = 5
	CategoryWorkstation int64 = 6
)

// ResourceCategory is one of the six bookable resource families.
type ResourceCategory struct {
	ID   int64  `gorm:"column:resource_category_id;primaryKey;autoIncrement:false" json:"resource_category_id"`
	Name string `gorm:"column:resource_category_name;size:64;not null;uniqueIndex" json:"resource_category_name"`
}

func (ResourceCategory) TableName() string { return "resource_categories" }

// Resource is the generic row shared by every category-specific resource.
type Resource struct {
	ID         int64  `gorm:"column:resource_id;primaryKey" json:"resource_id"`
	Name       string `gorm:"column:resource_name;size:256;not null;index" json:"resource_name"`
	CategoryID int64  `gorm:"column:resource_category_id;not null;index" json:"resource_category_id"`
	Status     string `gorm:"column:status;size:16;not null;default:Active" json:"status"`
	Location   string `gorm:"column:location;size:256" json:"location"`
}

func (Resource) TableName() string { return "resources" }

// Active reports whether the resource can be reserved.
func (r Resource) Active() bool { return r.Status == ResourceActive }

// Room is the category-specific row of a room.
type Room struct {
	ID           int64  `gorm:"column:room_id;primaryKey" json:"room_id"`
	CategoryID   int64  `gorm:"column:category_id" json:"category_id"`
	ResourceID   int64  `gorm:"column:resource_id;not null;index" json:"resource_id"`
	Name         string `gorm:"column:room_name;size:256;not null;index" json:"room_name"`
	Capacity     int    `gorm:"column:room_capacity" json:"room_capacity"`
	RoomType     string `gorm:"column:room_type;size:64" json:"room_type"`
	RoomLocation string `gorm:"column:room_location;size:256" json:"room_location"`
}

func (Room) TableName() string { return "rooms" }

// Trainer is the category-specific row of a trainer.
type Trainer struct {
	ID            int64  `gorm:"column:trainer_id;primaryKey" json:"trainer_id"`
	CategoryID    int64  `gorm:"column:category_id" json:"category_id"`
	ResourceID    int64  `gorm:"column:resource_id;not null;index" json:"resource_id"`
	Name          string `gorm:"column:trainer_name;size:256;not null" json:"trainer_name"`
	Topic1        string `gorm:"column:topic_1;size:128" json:"topic_1"`
	Topic2        string `gorm:"column:topic_2;size:128" json:"topic_2"`
	Topic3        string `gorm:"column:topic_3;size:128" json:"topic_3"`
	Topic4        string `gorm:"column:topic_4;size:128" json:"topic_4"`
	TopicOther    string `gorm:"column:topic_other;size:256" json:"topic_other"`
	PT            bool   `gorm:"column:pt" json:"pt"`
	SP            bool   `gorm:"column:sp" json:"sp"`
	EN            bool   `gorm:"column:en" json:"en"`
	LangOther     string `gorm:"column:lang_other;size:128" json:"lang_other"`
	Travel        bool   `gorm:"column:travel" json:"travel"`
	National      bool   `gorm:"column:national" json:"national"`
	International bool   `gorm:"column:international" json:"international"`
}

func (Trainer) TableName() string { return "trainers" }

// Vehicle is the category-specific row of a vehicle.
type Vehicle struct {
	ID                int64  `gorm:"column:vehicle_id;primaryKey" json:"vehicle_id"`
	License           string `gorm:"column:license;size:64;not null" json:"license"`
	CategoryID        int64  `gorm:"column:category_id" json:"category_id"`
	ResourceID        int64  `gorm:"column:resource_id;not null;index" json:"resource_id"`
	VehType           string `gorm:"column:veh_type;size:64" json:"veh_type"`
	OtherVehType      string `gorm:"column:other_veh_type;size:128" json:"other_veh_type"`
	Year              int    `gorm:"column:year" json:"year"`
	PurchaseYear      int    `gorm:"column:purchase_year" json:"purchase_year"`
	Brand             string `gorm:"column:brand;size:64" json:"brand"`
	Model             string `gorm:"column:model;size:64" json:"model"`
	VIN               string `gorm:"column:vin;size:64" json:"vin"`
	FuelType          string `gorm:"column:fuel_type;size:32" json:"fuel_type"`
	AdmissionType     string `gorm:"column:admission_type;size:32" json:"admission_type"`
	Cylinders         int    `gorm:"column:cylinders" json:"cylinders"`
	BodyType          string `gorm:"column:body_type;size:64" json:"body_type"`
	Transmission      string `gorm:"column:transmission;size:32" json:"transmission"`
	TransmissionOther string `gorm:"column:transmission_other;size:64" json:"transmission_other"`
	EngineModel       string `gorm:"column:engine_model;size:64" json:"engine_model"`
	EngineSize        string `gorm:"column:engine_size;size:32" json:"engine_size"`
	Systems           string `gorm:"column:systems;size:256" json:"systems"`
	RequireService    bool   `gorm:"column:require_service" json:"require_service"`
	ServiceType       string `gorm:"column:service_type;size:64" json:"service_type"`
	ServiceFreq       string `gorm:"column:service_freq;size:64" json:"service_freq"`
}

func (Vehicle) TableName() string { return "vehicles" }

// Equipment is the category-specific row of a piece of equipment.
type Equipment struct {
	ID                 int64  `gorm:"column:equipment_id;primaryKey" json:"equipment_id"`
	Name               string `gorm:"column:equipment_name;size:256;not null" json:"equipment_name"`
	SerialNumber       string `gorm:"column:equipment_sn;size:128" json:"equipment_sn"`
	CategoryID         int64  `gorm:"column:equ_category_id" json:"equ_category_id"`
	ResourceID         int64  `gorm:"column:resource_id;not null;index" json:"resource_id"`
	Use                string `gorm:"column:equipment_use;size:128" json:"equipment_use"`
	EquipmentType      string `gorm:"column:equipment_type;size:64" json:"equipment_type"`
	EquipmentTypeOther string `gorm:"column:equipment_type_other;size:128" json:"equipment_type_other"`
	Mobility           string `gorm:"column:equipment_mobility;size:32" json:"equipment_mobility"`
	Power              string `gorm:"column:equipment_power;size:32" json:"equipment_power"`
	RequireService     bool   `gorm:"column:require_service" json:"require_service"`
	ServiceType        string `gorm:"column:service_type;size:64" json:"service_type"`
	ServiceFreq        string `gorm:"column:service_freq;size:64" json:"service_freq"`
}

func (Equipment) TableName() string { return "equipment" }

// Multimedia is the category-specific row of a multimedia device.
type Multimedia struct {
	ID                  int64  `gorm:"column:multimedia_id;primaryKey" json:"multimedia_id"`
	Name                string `gorm:"column:multimedia_name;size:256;not null" json:"multimedia_name"`
	SerialNumber        string `gorm:"column:multimedia_sn;size:128" json:"multimedia_sn"`
	CategoryID          int64  `gorm:"column:mult_category_id" json:"mult_category_id"`
	ResourceID          int64  `gorm:"column:resource_id;not null;index" json:"resource_id"`
	MultimediaType      string `gorm:"column:multimedia_type;size:64" json:"multimedia_type"`
	MultimediaTypeOther string `gorm:"column:multimedia_type_other;size:128" json:"multimedia_type_other"`
	Mobility            string `gorm:"column:multimedia_mobility;size:32" json:"multimedia_mobility"`
	Power               string `gorm:"column:multimedia_power;size:32" json:"multimedia_power"`
	UseOutside          bool   `gorm:"column:use_out_cta" json:"use_out_cta"`
}

func (Multimedia) TableName() string { return "multimedia" }

// Workstation is the category-specific row of a workstation.
type Workstation struct {
	ID          int64  `gorm:"column:workstation_id;primaryKey" json:"workstation_id"`
	Name        string `gorm:"column:workstation_name;size:256;not null" json:"workstation_name"`
	Description string `gorm:"column:workstation_description;size:512" json:"workstation_description"`
	CategoryID  int64  `gorm:"column:work_category_id" json:"work_category_id"`
	ResourceID  int64  `gorm:"column:resource_id;not null;index" json:"resource_id"`
	Quantity    int    `gorm:"column:workstation_qty" json:"workstation_qty"`
	Mobility    string `gorm:"column:workstation_mobility;size:32" json:"workstation_mobility"`
}

func (Workstation) TableName() string { return "workstations" }

// RoomEquipment links stationary equipment to the room it lives in.
type RoomEquipment struct {
	ID         int64 `gorm:"primaryKey" json:"id"`
	RoomID     int64 `gorm:"column:room_id;not null;index" json:"room_id"`
	ResourceID int64 `gorm:"column:resource_id;not null;index" json:"resource_id"`
}

func (RoomEquipment) TableName() string { return "room_equipment" }
