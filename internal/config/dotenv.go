package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadDotEnv reads KEY=VALUE pairs from path and exports the ones that are not
// already present in the process environment. A missing file is not an error.
// It returns the names of the variables it exported.
func LoadDotEnv(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not stat %s: %w", path, err)
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}

	var exported []string
	// viper lowercases keys; environment names are conventionally upper case.
	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return exported, fmt.Errorf("could not export %s: %w", name, err)
		}
		exported = append(exported, name)
	}
	return exported, nil
}
