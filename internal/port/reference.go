package port

import "github.com/vertextoedge/reliable-downloader/internal/domain"

// ReferenceProvider supplies the expected size and hash of the target file
type ReferenceProvider interface {
	Reference() domain.ReferenceInfo
}
