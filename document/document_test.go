package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilename(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateFilename("notes.txt"))
	assert.NoError(ValidateFilename("quarterly report.pdf"))

	assert.ErrorIs(ValidateFilename(""), ErrInvalidFilename)
	assert.ErrorIs(ValidateFilename(".."), ErrInvalidFilename)
	assert.ErrorIs(ValidateFilename("../etc/passwd"), ErrInvalidFilename)
	assert.ErrorIs(ValidateFilename(`dir\file.txt`), ErrInvalidFilename)
	assert.ErrorIs(ValidateFilename(ArtifactName), ErrInvalidFilename, "artifact name is reserved")
}

func TestValidateSessionID(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateSessionID("7f1c2a9e-4b1d-4c59-9d5e-0a8f1c2b3d4e"))
	assert.ErrorIs(ValidateSessionID(""), ErrInvalidSessionID)
	assert.ErrorIs(ValidateSessionID("."), ErrInvalidSessionID)
	assert.ErrorIs(ValidateSessionID("a/b"), ErrInvalidSessionID)
}
