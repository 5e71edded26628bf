package config

import "fmt"

type ConfigFileInvalidError struct {
	Err error
}

type ConfigFileNotFoundError struct {
	Path string
	Err  error
}

func (e *ConfigFileInvalidError) Error() string {
	return fmt.Sprintf("Configuration file is invalid: %s", e.Err)
}

func (e *ConfigFileInvalidError) Unwrap() error {
	return e.Err
}

func (e *ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("Configuration file not found: %s", e.Path)
}
