package eutel

import (
	"github.com/pkg/errors"

	"github.com/decibelcooper/eutel/geometry"
)

// DefaultSpacing is the plane spacing in mm of the built-in telescope.
const DefaultSpacing = 20.0

// Setup loads the steering file, applies the command line overrides and
// loads the geometry named by geometry_file, or the built-in telescope.
func Setup(configFile string, settings *SettingFlags) (Configuration, *geometry.Telescope, error) {
	config, err := LoadConfiguration(configFile)
	if err != nil {
		return config, nil, errors.Wrap(err, "loading configuration")
	}
	if settings != nil {
		if err := settings.Apply(&config); err != nil {
			return config, nil, err
		}
	}

	geo := geometry.Default(DefaultSpacing)
	if config.GeometryFile != "" {
		geo, err = geometry.Load(config.GeometryFile)
		if err != nil {
			return config, nil, err
		}
	}
	if err := config.Validate(geo.NPlanes()); err != nil {
		return config, nil, errors.Wrap(err, "invalid configuration")
	}
	return config, geo, nil
}
