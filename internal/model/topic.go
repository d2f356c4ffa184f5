package model

// Topic C of Q 考试的知识领域
type Topic struct {
	BaseModel
	Slug        string `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Enabled     bool   `gorm:"default:true" json:"enabled"`
}

func (Topic) TableName() string {
	return "topics"
}

// DefaultTopics 首次迁移时写入
var DefaultTopics = []Topic{
	{Slug: "code-rules", Name: "Electrical Code Rules", Description: "Canadian Electrical Code sections, definitions and table lookups", Enabled: true},
	{Slug: "ohms-law", Name: "Ohm's Law & Circuit Theory", Description: "Voltage, current, resistance, power and series/parallel circuits", Enabled: true},
	{Slug: "grounding-bonding", Name: "Grounding & Bonding", Description: "System grounding, bonding conductors and ground fault paths", Enabled: true},
	{Slug: "conductors", Name: "Conductors & Raceways", Description: "Ampacity, derating, voltage drop and raceway fill", Enabled: true},
	{Slug: "motors", Name: "Motors & Controls", Description: "Motor circuits, overload protection and control wiring", Enabled: true},
	{Slug: "transformers", Name: "Transformers", Description: "Single and three phase transformers, connections and protection", Enabled: true},
	{Slug: "protection-devices", Name: "Overcurrent Protection", Description: "Fuses, breakers, GFCI/AFCI and coordination", Enabled: true},
	{Slug: "lighting-circuits", Name: "Lighting & Branch Circuits", Description: "Branch circuit design, switching and luminaires", Enabled: true},
}
