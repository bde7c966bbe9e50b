package ports

import (
	"context"

	"github.com/tamarajafar/NeuroMeta/domain/study"
)

// StudySource supplies the engine with parsed, validated study
// coordinate tables. Implementations own all file handling; the engine
// core never opens files itself.
type StudySource interface {
	ReadStudies(ctx context.Context) ([]study.Study, error)
}
