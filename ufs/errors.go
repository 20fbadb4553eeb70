package ufs

import "errors"

// errVolumeTooSmall is wrapped into a structured fserrors.Error by callers
// that know the op/path context (Mkfs).
var errVolumeTooSmall = errors.New("volume too small for requested inode count")
