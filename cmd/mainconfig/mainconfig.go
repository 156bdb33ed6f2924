package mainconfig

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/clinic-booking/internal/config"
)

// Load reads an optional .env file and then the process environment, so both
// binaries share the same local-development setup. Variables already set in
// the environment win over the file.
func Load(files ...string) (*appconfig.Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return appconfig.Load(), nil
}
