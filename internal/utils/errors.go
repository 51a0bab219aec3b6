package utils

import (
	"fmt"

	"github.com/bmakarand2009/studiomedia/internal/logging"
)

func IgnoreError(f func() error) {
	_ = f()
}

func PanicOnError(f func() error, message string) {
	err := f()
	if err != nil {
		logging.Logger.Panic(fmt.Errorf("%s: %w", message, err))
	}
}
