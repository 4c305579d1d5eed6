// Package orchestrator drives one court session from start to final ruling.
// Each running session gets a goroutine executing linear control flow with
// cancellable suspension points; the phase machine itself lives in the store.
package orchestrator

import "github.com/courtlive/courtd/pkg/models"

// WitnessCapConfig bounds witness answers by tokens and by speaking time.
type WitnessCapConfig struct {
	MaxTokens        int
	MaxSeconds       int
	TokensPerSecond  int
	TruncationMarker string
}

// DefaultWitnessCap returns the stock witness cap.
func DefaultWitnessCap() WitnessCapConfig {
	return WitnessCapConfig{
		MaxTokens:        120,
		MaxSeconds:       30,
		TokensPerSecond:  3,
		TruncationMarker: "[truncated by the court]",
	}
}

// RoleCaps holds the per-role token ceilings.
type RoleCaps struct {
	Judge      int
	Prosecutor int
	Defense    int
	Witness    int
	Bailiff    int
	Default    int
}

// DefaultRoleCaps returns the stock role token ceilings.
func DefaultRoleCaps() RoleCaps {
	return RoleCaps{
		Judge:      220,
		Prosecutor: 220,
		Defense:    220,
		Witness:    160,
		Bailiff:    120,
		Default:    260,
	}
}

// Cap returns the ceiling for a role.
func (c RoleCaps) Cap(role models.Role) int {
	switch role {
	case models.RoleJudge:
		return c.Judge
	case models.RoleProsecutor:
		return c.Prosecutor
	case models.RoleDefense:
		return c.Defense
	case models.RoleWitness:
		return c.Witness
	case models.RoleBailiff:
		return c.Bailiff
	}
	return c.Default
}

// Config gathers the orchestrator's tunables.
type Config struct {
	WitnessCap   WitnessCapConfig
	RoleCaps     RoleCaps
	RecapCadence int // recap every N witness cycles, >= 1
}

// DefaultConfig returns the stock orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		WitnessCap:   DefaultWitnessCap(),
		RoleCaps:     DefaultRoleCaps(),
		RecapCadence: 2,
	}
}
