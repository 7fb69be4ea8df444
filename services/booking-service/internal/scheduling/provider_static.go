package scheduling

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the YAML catalog used when no business-service is reachable,
// e.g. in local development:
//
//	businesses:
//	  - id: biz-1
//	    opening_time: "09:00"
//	    closing_time: "18:00"
//	    timezone: Europe/Berlin
//	    services:
//	      - id: haircut
//	        duration_minutes: 30
type CatalogFile struct {
	Businesses []BusinessConfig `yaml:"businesses"`
}

type BusinessConfig struct {
	ID                string          `yaml:"id"`
	OpeningTime       string          `yaml:"opening_time"`
	ClosingTime       string          `yaml:"closing_time"`
	Timezone          string          `yaml:"timezone"`
	SlotStepMinutes   int             `yaml:"slot_step_minutes"`
	ChangeNoticeHours int             `yaml:"change_notice_hours"`
	Services          []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	DurationMinutes int     `yaml:"duration_minutes"`
	Price           float64 `yaml:"price"`
	Currency        string  `yaml:"currency"`
}

// LoadCatalogFile reads path, expanding ${VAR} references from the environment.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog([]byte(os.ExpandEnv(string(data))))
}

func ParseCatalog(data []byte) (*CatalogFile, error) {
	var cf CatalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog file: %w", err)
	}
	return &cf, nil
}

func (c *CatalogFile) Validate() error {
	seen := map[string]bool{}
	for _, b := range c.Businesses {
		if b.ID == "" {
			return fmt.Errorf("business without id")
		}
		if seen[b.ID] {
			return fmt.Errorf("business %s: duplicate id", b.ID)
		}
		seen[b.ID] = true
		open, err := availability.ParseClock(b.OpeningTime)
		if err != nil {
			return fmt.Errorf("business %s: opening_time: %w", b.ID, err)
		}
		closing, err := availability.ParseClock(b.ClosingTime)
		if err != nil {
			return fmt.Errorf("business %s: closing_time: %w", b.ID, err)
		}
		if closing.Hour*60+closing.Minute <= open.Hour*60+open.Minute {
			return fmt.Errorf("business %s: closing_time must be after opening_time", b.ID)
		}
		if b.Timezone != "" {
			if _, err := time.LoadLocation(b.Timezone); err != nil {
				return fmt.Errorf("business %s: timezone: %w", b.ID, err)
			}
		}
		if b.ChangeNoticeHours < 0 || b.ChangeNoticeHours > 24 {
			return fmt.Errorf("business %s: change_notice_hours must be within 0..24", b.ID)
		}
		for _, s := range b.Services {
			if s.ID == "" || s.DurationMinutes <= 0 {
				return fmt.Errorf("business %s: service %q needs an id and a positive duration", b.ID, s.ID)
			}
		}
	}
	return nil
}

type staticProvider struct {
	hours    map[string]model.BusinessHours
	services map[string]model.Service
}

func NewStaticProvider(cf *CatalogFile) Provider {
	p := &staticProvider{hours: map[string]model.BusinessHours{}, services: map[string]model.Service{}}
	for _, b := range cf.Businesses {
		step := b.SlotStepMinutes
		if step <= 0 {
			step = int(availability.DefaultStep / time.Minute)
		}
		p.hours[b.ID] = model.BusinessHours{
			BusinessID:        b.ID,
			OpeningTime:       b.OpeningTime,
			ClosingTime:       b.ClosingTime,
			Timezone:          b.Timezone,
			SlotStepMinutes:   step,
			ChangeNoticeHours: b.ChangeNoticeHours,
		}
		for _, s := range b.Services {
			p.services[b.ID+"/"+s.ID] = model.Service{
				ID:              s.ID,
				BusinessID:      b.ID,
				Name:            s.Name,
				DurationMinutes: s.DurationMinutes,
				Price:           s.Price,
				Currency:        s.Currency,
			}
		}
	}
	return p
}

func (p *staticProvider) Service(_ context.Context, businessID, serviceID string) (model.Service, error) {
	s, ok := p.services[businessID+"/"+serviceID]
	if !ok {
		return model.Service{}, fmt.Errorf("service %s: %w", serviceID, ErrNotFound)
	}
	return s, nil
}

func (p *staticProvider) Hours(_ context.Context, businessID string) (model.BusinessHours, error) {
	h, ok := p.hours[businessID]
	if !ok {
		return model.BusinessHours{}, fmt.Errorf("business %s: %w", businessID, ErrNotFound)
	}
	return h, nil
}
