package ingest

import (
	"context"
	"fmt"

	"rack-service/internal/models"
)

// Action is one automation step an engine executed for a reading.
type Action struct {
	Rule      string  `json:"rule"`
	Action    string  `json:"action"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Reason    string  `json:"reason"`
}

// Engine evaluates automation rules against a fresh reading.
type Engine interface {
	Evaluate(ctx context.Context, rackID string, reading *models.SensorReading) ([]Action, error)
}

// Rule fires Action when Metric drops below Min or rises above Max.
type Rule struct {
	Name   string
	Metric string
	Min    *float64
	Max    *float64
	Action string
}

// ThresholdEngine applies a fixed set of rules to every rack.
type ThresholdEngine struct {
	rules []Rule
}

func NewThresholdEngine(rules []Rule) *ThresholdEngine {
	return &ThresholdEngine{rules: rules}
}

func bound(v float64) *float64 {
	return &v
}

func DefaultRules() []Rule {
	return []Rule{
		{Name: "low-water", Metric: "waterLevel", Min: bound(20), Action: "refill_reservoir"},
		{Name: "overheat", Metric: "temperature", Max: bound(32), Action: "start_fan"},
		{Name: "dry-air", Metric: "humidity", Min: bound(35), Action: "start_mister"},
		{Name: "low-light", Metric: "lightIntensity", Min: bound(200), Action: "lights_on"},
		{Name: "ph-out-of-range", Metric: "ph", Min: bound(5.5), Max: bound(7.0), Action: "dose_ph"},
	}
}

func (e *ThresholdEngine) Evaluate(_ context.Context, _ string, reading *models.SensorReading) ([]Action, error) {
	if reading == nil {
		return nil, nil
	}

	var actions []Action
	for _, rule := range e.rules {
		value, ok := reading.Metric(rule.Metric)
		if !ok {
			continue
		}
		switch {
		case rule.Min != nil && value < *rule.Min:
			actions = append(actions, Action{
				Rule:      rule.Name,
				Action:    rule.Action,
				Metric:    rule.Metric,
				Value:     value,
				Threshold: *rule.Min,
				Reason:    fmt.Sprintf("%s %.2f below %.2f", rule.Metric, value, *rule.Min),
			})
		case rule.Max != nil && value > *rule.Max:
			actions = append(actions, Action{
				Rule:      rule.Name,
				Action:    rule.Action,
				Metric:    rule.Metric,
				Value:     value,
				Threshold: *rule.Max,
				Reason:    fmt.Sprintf("%s %.2f above %.2f", rule.Metric, value, *rule.Max),
			})
		}
	}
	return actions, nil
}
