package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"event-reservation/shared"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Admission AdmissionConfig `yaml:"admission"`
	Catalog   []CatalogEvent  `yaml:"catalog"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

// AdmissionConfig holds the tunables read by the coordinator. Timeouts
// are plain seconds in the file.
type AdmissionConfig struct {
	MaxActiveUsers            int `yaml:"max_active_users"`
	SelectionTimeoutSeconds   int `yaml:"selection_timeout_seconds"`
	ReservationTimeoutSeconds int `yaml:"reservation_timeout_seconds"`
	SweepIntervalSeconds      int `yaml:"sweep_interval_seconds"`
}

// CatalogEvent is one seeded event. Events start with all slots available.
type CatalogEvent struct {
	ID         int    `yaml:"id"`
	Name       string `yaml:"name"`
	TotalSlots int    `yaml:"total_slots"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: shared.ReservationServicePort,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		NATS: NATSConfig{
			URL: "nats://127.0.0.1:4222",
		},
		Admission: AdmissionConfig{
			MaxActiveUsers:            shared.DefaultMaxActiveUsers,
			SelectionTimeoutSeconds:   int(shared.DefaultSelectionTimeout / time.Second),
			ReservationTimeoutSeconds: int(shared.DefaultReservationTimeout / time.Second),
			SweepIntervalSeconds:      int(shared.SweepInterval / time.Second),
		},
		Catalog: []CatalogEvent{
			{ID: 1, Name: "Tech Conference", TotalSlots: 50},
			{ID: 2, Name: "Cloud Workshop", TotalSlots: 30},
			{ID: 3, Name: "Hackathon", TotalSlots: 100},
			{ID: 4, Name: "AI Meetup", TotalSlots: 40},
			{ID: 5, Name: "Dev Summit", TotalSlots: 60},
		},
	}
}

// LoadConfig reads the yaml file at path over the built-in defaults. An
// empty path returns the defaults untouched.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Settings converts the admission section into coordinator settings.
func (c *Config) Settings() shared.Settings {
	return shared.Settings{
		MaxActiveUsers:     c.Admission.MaxActiveUsers,
		SelectionTimeout:   time.Duration(c.Admission.SelectionTimeoutSeconds) * time.Second,
		ReservationTimeout: time.Duration(c.Admission.ReservationTimeoutSeconds) * time.Second,
	}
}

// SweepInterval returns how often the expiry sweeper runs.
func (c *Config) SweepInterval() time.Duration {
	if c.Admission.SweepIntervalSeconds < 1 {
		return shared.SweepInterval
	}
	return time.Duration(c.Admission.SweepIntervalSeconds) * time.Second
}

// CatalogEvents expands the catalog into full event records.
func (c *Config) CatalogEvents() []shared.Event {
	events := make([]shared.Event, 0, len(c.Catalog))
	for _, entry := range c.Catalog {
		events = append(events, shared.Event{
			ID:             entry.ID,
			Name:           entry.Name,
			TotalSlots:     entry.TotalSlots,
			AvailableSlots: entry.TotalSlots,
		})
	}
	return events
}
