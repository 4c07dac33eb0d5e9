package ads7846

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/ads7846/components/touch"
)

const (
	defaultBaud              = 2000000
	maxBaud                  = 2500000
	defaultPressureThreshold = 5
	maxPressure              = 254
	defaultTolerance         = 8
	maxReading               = 0x0FFF
)

// Config describes one ADS7846 wired to a display.
type Config struct {
	SPIBus     string `json:"spi_bus"`
	ChipSelect string `json:"chip_select"`
	Baud       int    `json:"baud,omitempty"`

	// Width and Height are the display's native (0°) pixel dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Orientation in degrees: 0, 90, 180 or 270.
	Orientation       int                     `json:"orientation,omitempty"`
	PressureThreshold int                     `json:"pressure_threshold,omitempty"`
	Tolerance         int                     `json:"tolerance,omitempty"`
	Calibration       []touch.CalibrationPair `json:"calibration,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.SPIBus == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "spi_bus")
	}
	if conf.ChipSelect == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "chip_select")
	}
	if conf.Width == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if conf.Height == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "height")
	}
	if conf.Width < 0 || conf.Height < 0 {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("display size must be positive, got %dx%d", conf.Width, conf.Height))
	}
	if conf.Baud < 0 || conf.Baud > maxBaud {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("baud must be between 1 and %d, got %d", maxBaud, conf.Baud))
	}
	if _, err := touch.OrientationFromDegrees(conf.Orientation); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if conf.PressureThreshold < 0 || conf.PressureThreshold > maxPressure {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("pressure_threshold must be between 0 and %d, got %d", maxPressure, conf.PressureThreshold))
	}
	if conf.Tolerance < 0 || conf.Tolerance > maxReading {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("tolerance must be between 0 and %d, got %d", maxReading, conf.Tolerance))
	}
	if len(conf.Calibration) != 0 {
		screen, panel := touch.SplitPairs(conf.Calibration)
		if _, err := touch.ComputeCalibration(screen, panel); err != nil {
			return goutils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, "calibration"), err)
		}
	}
	return nil
}

func (conf *Config) baud() uint {
	if conf.Baud == 0 {
		return defaultBaud
	}
	return uint(conf.Baud)
}

func (conf *Config) pressureThreshold() int {
	if conf.PressureThreshold == 0 {
		return defaultPressureThreshold
	}
	return conf.PressureThreshold
}

func (conf *Config) tolerance() int {
	if conf.Tolerance == 0 {
		return defaultTolerance
	}
	return conf.Tolerance
}

// ConfigFromAttributes converts a loosely typed attribute map, such as one decoded from a JSON
// file, into a Config. Unknown keys are an error.
func ConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	var conf Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding ads7846 attributes")
	}
	return &conf, nil
}
