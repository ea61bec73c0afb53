package cache

import "context"

type ShareTextCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	GetText(ctx context.Context, hashId string) ([]byte, error)
	SetText(ctx context.Context, hashId string, data []byte) error
	InvalidateText(ctx context.Context, hashId string) error

	GetPublicListPage(ctx context.Context, page int, pageSize int) ([]byte, error)
	SetPublicListPage(ctx context.Context, page int, pageSize int, data []byte) error
	BumpPublicListGen(ctx context.Context) error
}
