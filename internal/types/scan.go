package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScanRecord is one body-composition measurement event extracted from a scan
// sheet. Height, weight and scan date are always present; every other metric is
// independently optional because different machine models print different
// subsets. Records are immutable once created.
type ScanRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContentHash string    `gorm:"column:content_hash;not null;index" json:"content_hash"`
	ScanDate    time.Time `gorm:"column:scan_date;not null;index" json:"scan_date"`
	Height      float64   `gorm:"column:height;not null" json:"height"`
	Weight      float64   `gorm:"column:weight;not null" json:"weight"`
	Age         *int      `gorm:"column:age" json:"age,omitempty"`
	Gender      *string   `gorm:"column:gender" json:"gender,omitempty"`

	// Body composition
	MuscleMass        *float64 `gorm:"column:muscle_mass" json:"muscle_mass,omitempty"`
	BodyFatMass       *float64 `gorm:"column:body_fat_mass" json:"body_fat_mass,omitempty"`
	BodyFatPercentage *float64 `gorm:"column:body_fat_percentage" json:"body_fat_percentage,omitempty"`

	// Body water and fat-free mass
	TotalBodyWater *float64 `gorm:"column:total_body_water" json:"total_body_water,omitempty"`
	FatFreeMass    *float64 `gorm:"column:fat_free_mass" json:"fat_free_mass,omitempty"`

	// Health metrics
	BMI              *float64 `gorm:"column:bmi" json:"bmi,omitempty"`
	BMR              *float64 `gorm:"column:bmr" json:"bmr,omitempty"`
	VisceralFatLevel *float64 `gorm:"column:visceral_fat_level" json:"visceral_fat_level,omitempty"`

	// Additional metrics
	PBF *float64 `gorm:"column:pbf" json:"pbf,omitempty"`
	WHR *float64 `gorm:"column:whr" json:"whr,omitempty"`

	// Unified score (some machines print "InBody Score", others "Fitness Score")
	BodyScore *int `gorm:"column:body_score" json:"body_score,omitempty"`

	// Control recommendations
	MuscleControl *float64 `gorm:"column:muscle_control" json:"muscle_control,omitempty"`
	FatControl    *float64 `gorm:"column:fat_control" json:"fat_control,omitempty"`

	// Segmental analysis, lean mass
	RightArmLean *float64 `gorm:"column:right_arm_lean" json:"right_arm_lean,omitempty"`
	LeftArmLean  *float64 `gorm:"column:left_arm_lean" json:"left_arm_lean,omitempty"`
	TrunkLean    *float64 `gorm:"column:trunk_lean" json:"trunk_lean,omitempty"`
	RightLegLean *float64 `gorm:"column:right_leg_lean" json:"right_leg_lean,omitempty"`
	LeftLegLean  *float64 `gorm:"column:left_leg_lean" json:"left_leg_lean,omitempty"`

	// Segmental analysis, fat mass
	RightArmFat *float64 `gorm:"column:right_arm_fat" json:"right_arm_fat,omitempty"`
	LeftArmFat  *float64 `gorm:"column:left_arm_fat" json:"left_arm_fat,omitempty"`
	TrunkFat    *float64 `gorm:"column:trunk_fat" json:"trunk_fat,omitempty"`
	RightLegFat *float64 `gorm:"column:right_leg_fat" json:"right_leg_fat,omitempty"`
	LeftLegFat  *float64 `gorm:"column:left_leg_fat" json:"left_leg_fat,omitempty"`

	// Raw extraction payload kept for audit
	RawExtraction datatypes.JSON `gorm:"column:raw_extraction" json:"raw_extraction,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ScanRecord) TableName() string { return "scan_record" }

func (r *ScanRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HasSegmental reports whether at least one of the ten segmental columns is set.
func (r *ScanRecord) HasSegmental() bool {
	for _, v := range r.SegmentalColumns() {
		if v != nil {
			return true
		}
	}
	return false
}

// SegmentalColumns returns the ten segmental values in a fixed order:
// lean right arm, left arm, trunk, right leg, left leg, then fat in the same order.
func (r *ScanRecord) SegmentalColumns() []*float64 {
	return []*float64{
		r.RightArmLean, r.LeftArmLean, r.TrunkLean, r.RightLegLean, r.LeftLegLean,
		r.RightArmFat, r.LeftArmFat, r.TrunkFat, r.RightLegFat, r.LeftLegFat,
	}
}
