// Package config loads the optional TOML configuration file.
//
// Every key maps to a command-line flag. Values from the file fill in flags
// that were not given on the command line, so explicit flags always win.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// File is the on-disk configuration. Unset keys are nil.
type File struct {
	Poll     *string `toml:"poll"`
	DataFile *string `toml:"data_file"`

	Warning Warning `toml:"warning"`
	Sensors Sensors `toml:"sensors"`
	LED     LED     `toml:"led"`
	Button  Button  `toml:"button"`
	MQTT    MQTT    `toml:"mqtt"`
	HTTP    HTTP    `toml:"http"`
	Mail    Mail    `toml:"mail"`
}

// Warning holds the controller settings.
type Warning struct {
	HumidityLimit *float64 `toml:"humidity_limit"`
	Dwell         *int     `toml:"dwell"`
	Override      *string  `toml:"override"`
}

// Sensors selects the sensor bus and addresses.
type Sensors struct {
	Bus         *string `toml:"i2c_bus"`
	Addr1       *int    `toml:"addr1"`
	Addr2       *int    `toml:"addr2"`
	Simulate    *bool   `toml:"simulate"`
	FallbackSim *bool   `toml:"fallback_sim"`
}

// LED configures the warning strip.
type LED struct {
	Pixels  *int    `toml:"pixels"`
	SPIPort *string `toml:"spi_port"`
}

// Button configures the override button.
type Button struct {
	Pin *int `toml:"pin"`
}

// MQTT configures the broker connection.
type MQTT struct {
	Broker    *string `toml:"broker"`
	Heartbeat *string `toml:"heartbeat"`
}

// HTTP configures the status server.
type HTTP struct {
	Addr *string `toml:"addr"`
}

// Mail configures warning e-mails.
type Mail struct {
	Domain *string  `toml:"domain"`
	APIKey *string  `toml:"api_key"`
	From   *string  `toml:"from"`
	To     []string `toml:"to"`
}

// ErrInvalid is wrapped by Load when a value is out of range.
var ErrInvalid = errors.New("invalid config value")

// Load reads and validates a configuration file. Unknown keys are rejected.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates TOML configuration data.
func Parse(data []byte) (File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse config: %w", err)
	}
	if err := f.validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) validate() error {
	for name, d := range map[string]*string{"poll": f.Poll, "mqtt.heartbeat": f.MQTT.Heartbeat} {
		if d == nil {
			continue
		}
		if _, err := time.ParseDuration(*d); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	if f.Warning.HumidityLimit != nil {
		if l := *f.Warning.HumidityLimit; l < 0 || l > 100 {
			return fmt.Errorf("%w: warning.humidity_limit %v outside 0..100", ErrInvalid, l)
		}
	}
	if f.Warning.Dwell != nil && *f.Warning.Dwell < 0 {
		return fmt.Errorf("%w: warning.dwell must not be negative", ErrInvalid)
	}
	if f.LED.Pixels != nil && *f.LED.Pixels < 1 {
		return fmt.Errorf("%w: led.pixels must be at least 1", ErrInvalid)
	}
	return nil
}

// Values returns the flag name and string value of every key that is set.
func (f File) Values() map[string]string {
	v := make(map[string]string)
	setString(v, "poll", f.Poll)
	setString(v, "data-file", f.DataFile)
	if f.Warning.HumidityLimit != nil {
		v["humidity-limit"] = strconv.FormatFloat(*f.Warning.HumidityLimit, 'f', -1, 64)
	}
	setInt(v, "dwell", f.Warning.Dwell)
	setString(v, "override", f.Warning.Override)
	setString(v, "i2c-bus", f.Sensors.Bus)
	setInt(v, "addr1", f.Sensors.Addr1)
	setInt(v, "addr2", f.Sensors.Addr2)
	setBool(v, "simulate", f.Sensors.Simulate)
	setBool(v, "fallback-sim", f.Sensors.FallbackSim)
	setInt(v, "led-pixels", f.LED.Pixels)
	setString(v, "spi-port", f.LED.SPIPort)
	setInt(v, "pin-button", f.Button.Pin)
	setString(v, "broker", f.MQTT.Broker)
	setString(v, "heartbeat", f.MQTT.Heartbeat)
	setString(v, "http", f.HTTP.Addr)
	setString(v, "mail-domain", f.Mail.Domain)
	setString(v, "mail-key", f.Mail.APIKey)
	setString(v, "mail-from", f.Mail.From)
	if f.Mail.To != nil {
		v["mail-to"] = strings.Join(f.Mail.To, ",")
	}
	return v
}

// Apply sets every flag in fs that the file configures and that was not set
// on the command line. It returns the names of the flags that were set
// explicitly, which callers use to keep those values pinned on reload.
func (f File) Apply(fs *flag.FlagSet) (map[string]bool, error) {
	explicit := Explicit(fs)
	for name, value := range f.Values() {
		if explicit[name] {
			continue
		}
		if fs.Lookup(name) == nil {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return explicit, fmt.Errorf("apply config %s=%q: %w", name, value, err)
		}
	}
	return explicit, nil
}

// Explicit returns the set of flags given on the command line.
func Explicit(fs *flag.FlagSet) map[string]bool {
	explicit := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		explicit[fl.Name] = true
	})
	return explicit
}

func setString(v map[string]string, name string, s *string) {
	if s != nil {
		v[name] = *s
	}
}

func setInt(v map[string]string, name string, i *int) {
	if i != nil {
		v[name] = strconv.Itoa(*i)
	}
}

func setBool(v map[string]string, name string, b *bool) {
	if b != nil {
		v[name] = strconv.FormatBool(*b)
	}
}
