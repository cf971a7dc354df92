package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadPackageUnsupportedType(t *testing.T) {
	_, err := ReadPackage("XYZ", []float64{1, 1, 1})
	require.ErrorIs(t, err, ErrUnsupportedWorkoutType)

	var typeErr *UnsupportedWorkoutTypeError
	require.True(t, errors.As(err, &typeErr))
	require.Equal(t, "XYZ", typeErr.Code)
	require.Equal(t, "unsupported workout type 'XYZ'", err.Error())
}

func TestReadPackageArity(t *testing.T) {
	cases := []struct {
		code string
		data []float64
		want int
	}{
		{"RUN", []float64{15000, 1}, 3},
		{"WLK", []float64{9000, 1, 75}, 4},
		{"SWM", []float64{720, 1, 80, 25, 40, 1}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			_, err := ReadPackage(tc.code, tc.data)
			require.ErrorIs(t, err, ErrInvalidArgumentCount)

			var countErr *ArgumentCountError
			require.True(t, errors.As(err, &countErr))
			require.Equal(t, tc.want, countErr.Want)
			require.Equal(t, len(tc.data), countErr.Got)
		})
	}
}

func TestReadPackageRejectsBadAction(t *testing.T) {
	for _, action := range []float64{-1, 1.5, math.NaN(), math.Inf(1)} {
		_, err := ReadPackage("RUN", []float64{action, 1, 75})
		require.ErrorIs(t, err, ErrInvalidAction)
	}
}

func TestReadPackageRejectsNonPositiveDuration(t *testing.T) {
	_, err := ReadPackage("SWM", []float64{720, 0, 80, 25, 40})
	require.ErrorIs(t, err, ErrInvalidDuration)
	require.Contains(t, err.Error(), "SWM package")
}

func TestReadPackageDoesNotMutateData(t *testing.T) {
	data := []float64{720, 1, 80, 25, 40}
	snapshot := append([]float64(nil), data...)

	training, err := ReadPackage("SWM", data)
	require.NoError(t, err)
	Summarize(training)
	require.Equal(t, snapshot, data)
}

func TestWorkoutTypeMetadata(t *testing.T) {
	require.Equal(t, []WorkoutType{WorkoutRunning, WorkoutWalking, WorkoutSwimming}, WorkoutTypes())
	for _, wt := range WorkoutTypes() {
		parsed, err := ParseWorkoutType(wt.Code())
		require.NoError(t, err)
		require.Equal(t, wt, parsed)
		require.NotZero(t, wt.Arity())
	}
	_, err := ParseWorkoutType("run")
	require.ErrorIs(t, err, ErrUnsupportedWorkoutType)
}
