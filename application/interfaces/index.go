package interfaces

import "net/http"

// ApplicationContext wraps a transport context (gin) with the parsed request
// body and request-scoped data so controllers stay transport-agnostic.
type ApplicationContext[T any] struct {
	Ctx       any
	Body      *T
	Keys      map[string]any
	Header    http.Header
	DeviceID  string
	UserAgent string
}

func (ac *ApplicationContext[T]) SetContextData(key string, value any) {
	if ac.Keys == nil {
		ac.Keys = map[string]any{}
	}
	ac.Keys[key] = value
}

func (ac *ApplicationContext[T]) GetContextData(key string) any {
	if ac.Keys == nil {
		return nil
	}
	return ac.Keys[key]
}

func (ac *ApplicationContext[T]) GetStringContextData(key string) string {
	value, ok := ac.GetContextData(key).(string)
	if !ok {
		return ""
	}
	return value
}

func (ac *ApplicationContext[T]) GetHeader(key string) *string {
	if ac.Header == nil {
		return nil
	}
	value := ac.Header.Get(key)
	if value == "" {
		return nil
	}
	return &value
}
