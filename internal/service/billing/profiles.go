// internal/service/billing/profiles.go
package billing

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultProfileName = "default"

// Profile describes how one telco behaves in the simulator.
type Profile struct {
	Name              string  `yaml:"name"`
	ChargeSuccessRate float64 `yaml:"charge_success_rate"`
	RefundSuccessRate float64 `yaml:"refund_success_rate"`
	DelayMS           int     `yaml:"delay_ms"`
}

func (p Profile) Delay() time.Duration {
	return time.Duration(p.DelayMS) * time.Millisecond
}

func (p Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.ChargeSuccessRate < 0 || p.ChargeSuccessRate > 1 {
		return fmt.Errorf("profile %s: charge_success_rate must be within [0,1]", p.Name)
	}
	if p.RefundSuccessRate < 0 || p.RefundSuccessRate > 1 {
		return fmt.Errorf("profile %s: refund_success_rate must be within [0,1]", p.Name)
	}
	if p.DelayMS < 0 {
		return fmt.Errorf("profile %s: delay_ms must not be negative", p.Name)
	}
	return nil
}

type profileFile struct {
	Providers []Profile `yaml:"providers"`
}

// DefaultProfiles returns the built-in telco table.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"vodacom":          {Name: "vodacom", ChargeSuccessRate: 0.95, RefundSuccessRate: 0.98, DelayMS: 500},
		"mtn":              {Name: "mtn", ChargeSuccessRate: 0.93, RefundSuccessRate: 0.97, DelayMS: 600},
		"cellc":            {Name: "cellc", ChargeSuccessRate: 0.92, RefundSuccessRate: 0.96, DelayMS: 700},
		"telkom":           {Name: "telkom", ChargeSuccessRate: 0.90, RefundSuccessRate: 0.95, DelayMS: 800},
		DefaultProfileName: {Name: DefaultProfileName, ChargeSuccessRate: 0.95, RefundSuccessRate: 0.98, DelayMS: 500},
	}
}

// LoadProfiles overlays the profiles in path on top of the defaults. An
// empty path yields the defaults.
func LoadProfiles(path string) (map[string]Profile, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read billing profiles: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse billing profiles: %w", err)
	}

	for _, p := range file.Providers {
		if err := p.validate(); err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}
