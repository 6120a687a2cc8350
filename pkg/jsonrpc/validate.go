package jsonrpc

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce     sync.Once
	validatorInstance *validator.Validate
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New()
	})
	return validatorInstance
}
