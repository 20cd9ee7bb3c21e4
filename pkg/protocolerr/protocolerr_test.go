package protocolerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luxfi/tmcgcore/pkg/protocolerr"
)

func TestErrorString(t *testing.T) {
	bare := protocolerr.Sentinel(protocolerr.NotInGroup)
	assert.Equal(t, "NotInGroup", bare.Error())

	withMsg := protocolerr.New(protocolerr.BadProof, "share %d failed verification", 3)
	assert.Equal(t, "BadProof: share 3 failed verification", withMsg.Error())
}

func TestIsMatchesByCodeOnly(t *testing.T) {
	err := protocolerr.New(protocolerr.Timeout, "waiting on party 2")
	assert.True(t, errors.Is(err, protocolerr.Sentinel(protocolerr.Timeout)))
	assert.False(t, errors.Is(err, protocolerr.Sentinel(protocolerr.Abort)))
}

func TestIsRejectsNonProtocolerrTargets(t *testing.T) {
	err := protocolerr.New(protocolerr.Unqualified, "QUAL too small")
	assert.False(t, errors.Is(err, errors.New("unqualified")))
}
