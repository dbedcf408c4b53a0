package domain

import "errors"

var (
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
	ErrEmptyBody         = errors.New("empty response body")
	ErrNoCandidates      = errors.New("response contains no candidates")
	ErrNoImageData       = errors.New("response contains no image data")
	ErrUploadExhausted   = errors.New("all upload backends failed")
	ErrUnknownModel      = errors.New("unknown model")
	ErrInvalidRatio      = errors.New("invalid aspect ratio")
	ErrInvalidResolution = errors.New("invalid resolution")
)
