package models

import "time"

// SensorReading is one telemetry sample from a rack. Metrics the controller
// did not report are nil.
type SensorReading struct {
	ID             uint      `gorm:"primaryKey" json:"id,omitempty"`
	RackID         string    `gorm:"index:idx_readings_rack_recorded,priority:1;size:64;not null" json:"rackId"`
	Temperature    *float64  `json:"temperature,omitempty"`
	Humidity       *float64  `json:"humidity,omitempty"`
	WaterLevel     *float64  `json:"waterLevel,omitempty"`
	LightIntensity *float64  `json:"lightIntensity,omitempty"`
	PH             *float64  `gorm:"column:ph" json:"ph,omitempty"`
	EC             *float64  `gorm:"column:ec" json:"ec,omitempty"`
	RecordedAt     time.Time `gorm:"index:idx_readings_rack_recorded,priority:2,sort:desc;not null" json:"recordedAt"`
}

// Metric returns the named metric value, if it was reported.
func (r *SensorReading) Metric(name string) (float64, bool) {
	var v *float64
	switch name {
	case "temperature":
		v = r.Temperature
	case "humidity":
		v = r.Humidity
	case "waterLevel":
		v = r.WaterLevel
	case "lightIntensity":
		v = r.LightIntensity
	case "ph":
		v = r.PH
	case "ec":
		v = r.EC
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}
