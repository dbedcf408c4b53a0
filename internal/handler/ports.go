package handler

import (
	"context"

	"github.com/yono-dev/craftmind/internal/domain"
	"github.com/yono-dev/craftmind/internal/service"
)

// Generator produces model output for the three generation shapes.
type Generator interface {
	GenerateText(ctx context.Context, history []domain.Content, model, system string) (string, error)
	GenerateTextWithSearch(ctx context.Context, contents []domain.Content, model, system string) (*service.TextResult, error)
	GenerateImage(ctx context.Context, prompt, model, aspectRatio, resolution, system string, reference *domain.InlineData) ([]byte, error)
}

// Fetcher downloads a user-supplied source image for image-to-image.
type Fetcher interface {
	Fetch(ctx context.Context, imageURL string) (*service.FetchResult, error)
}

// Uploader publishes generated image bytes and returns a public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// Library is the per-user generated-image library.
type Library interface {
	LoadUser(ctx context.Context, userID int64)
	UnloadUser(ctx context.Context, userID int64)
	Add(userID int64, record domain.ImageRecord) domain.ImageRecord
	Get(userID int64, index int) (domain.ImageRecord, bool)
	List(userID int64) []domain.ImageRecord
	Len(userID int64) int
}

// Audit mirrors completed interactions to the external log and reads them
// back for the history view.
type Audit interface {
	Enabled() bool
	Record(ctx context.Context, userID int64, mode, model, input, response string)
	FetchHistory(ctx context.Context, userID int64, page int) ([]service.AuditEntry, error)
}

// Presenter delivers text to the user on whatever surface is wired in.
type Presenter interface {
	Send(userID int64, text string)
}
