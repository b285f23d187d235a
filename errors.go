package ashsegments

import (
	"github.com/jmgilman/go/errors"
)

var (
	// ErrSegmentExists is returned when adding a segment under a taken name.
	ErrSegmentExists = errors.New(errors.CodeAlreadyExists, "segment already exists")
	// ErrSegmentNotFound is returned for operations on an unknown segment name.
	ErrSegmentNotFound = errors.New(errors.CodeNotFound, "segment not found")
)

func segmentNotFound(name string) error {
	return errors.Wrapf(ErrSegmentNotFound, errors.CodeNotFound, "segment %s", name)
}

func segmentExists(name string) error {
	return errors.Wrapf(ErrSegmentExists, errors.CodeAlreadyExists, "segment %s", name)
}
