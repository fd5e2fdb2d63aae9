package models

import "errors"

var ErrUnknownRefKind = errors.New("unknown reference kind")
