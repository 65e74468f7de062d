package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posemotion/config"
)

func TestInputResizer(t *testing.T) {

	est := config.Default().Estimator
	est.InputWidth = 256
	est.InputHeight = 256

	est.Kind = config.EstimatorWorker
	r := inputResizer(est, 640, 480)
	require.NotNil(t, r)
	defer r.Close()
	assert.False(t, r.Passthrough())

	// recorded landmarks are already in source coordinates
	est.Kind = config.EstimatorReplay
	assert.Nil(t, inputResizer(est, 640, 480))

	est.Kind = config.EstimatorWorker
	est.InputWidth = 0
	assert.Nil(t, inputResizer(est, 640, 480))

	est.InputWidth = 256
	assert.Nil(t, inputResizer(est, 0, 0))
}

func TestApplyCPUAffinity(t *testing.T) {
	assert.NoError(t, applyCPUAffinity(""))
	assert.Error(t, applyCPUAffinity("3-1"))
	assert.Error(t, applyCPUAffinity("a,b"))
}
