package database

import (
	"errors"

	"tiered_social/pkg/apperr"

	"gorm.io/gorm"
)

// TranslateError 把 gorm 错误映射为业务错误
// ErrDuplicatedKey 依赖 gorm.Config{TranslateError: true}
func TranslateError(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(notFoundMsg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.KindConflict, "already exists", err)
	}
	return err
}
