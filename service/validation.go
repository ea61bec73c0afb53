package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func (s *Service) prepareName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(trimmed) > s.Limits.MaxNameLength {
		return "", fmt.Errorf("%w: the name is too long, maximum %d characters", ErrInvalidInput, s.Limits.MaxNameLength)
	}
	return trimmed, nil
}

func (s *Service) prepareTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", fmt.Errorf("%w: title is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(trimmed) > s.Limits.MaxTitleLength {
		return "", fmt.Errorf("%w: the title is too long, maximum %d characters", ErrInvalidInput, s.Limits.MaxTitleLength)
	}
	return trimmed, nil
}

func (s *Service) prepareBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", fmt.Errorf("%w: body is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(trimmed) > s.Limits.MaxBodyLength {
		return "", fmt.Errorf("%w: the body is too long, maximum %d characters", ErrInvalidInput, s.Limits.MaxBodyLength)
	}
	return trimmed, nil
}
