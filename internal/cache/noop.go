package cache

import "context"

// Noop используется, когда Redis не настроен: ничего не хранит и никогда не находит.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }

func (Noop) Set(context.Context, string, any) error { return nil }

func (Noop) Invalidate(context.Context, string) error { return nil }

func (Noop) Close() error { return nil }
