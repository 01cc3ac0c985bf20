package resolve

import (
	"errors"

	"github.com/John-Robertt/avmeta/internal/domain"
	"github.com/John-Robertt/avmeta/internal/extract"
	"github.com/John-Robertt/avmeta/internal/infra/cache"
	"github.com/John-Robertt/avmeta/internal/infra/httpx"
	"github.com/John-Robertt/avmeta/internal/provider"
)

// ErrorCode 把解析失败归类为报告里的 error_code。
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if httpx.IsCancelled(err) {
		return domain.ErrCodeCancelled
	}
	if errors.Is(err, ErrNoID) || errors.Is(err, cache.ErrInvalidID) {
		return domain.ErrCodeInvalidID
	}
	var ioErr *cache.IOError
	if errors.As(err, &ioErr) {
		return domain.ErrCodeCacheIO
	}
	var pe *extract.ParseError
	if errors.As(err, &pe) {
		return domain.ErrCodeParseFailed
	}
	var se *provider.Error
	if errors.As(err, &se) && se.Stage == provider.StageParse {
		return domain.ErrCodeParseFailed
	}
	return domain.ErrCodeFetchFailed
}
