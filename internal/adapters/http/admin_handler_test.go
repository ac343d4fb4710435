package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftbot/core/internal/domain/entities"
)

func TestSettingValueSelectsByWireKey(t *testing.T) {
	s := entities.SystemSettings{
		StoreName:        "テスト店",
		BusinessHours:    "09:00-22:00",
		ShiftDeadlineDay: 25,
		AutoBreakEnabled: true,
		BreakRules:       map[string]int{"6hours": 45},
		Timezone:         "Asia/Tokyo",
	}

	v, ok := settingValue(s, "storeName")
	require.True(t, ok)
	assert.Equal(t, "テスト店", v)

	v, ok = settingValue(s, "shiftDeadlineDay")
	require.True(t, ok)
	assert.Equal(t, 25, v)

	v, ok = settingValue(s, "breakRules")
	require.True(t, ok)
	assert.Equal(t, map[string]int{"6hours": 45}, v)

	_, ok = settingValue(s, "noSuchKey")
	assert.False(t, ok)
}

func TestSettingPatchBuildsSingleFieldPatch(t *testing.T) {
	patch, err := settingPatch("businessHours", json.RawMessage(`"10:00-23:00"`))
	require.NoError(t, err)
	require.NotNil(t, patch.BusinessHours)
	assert.Equal(t, "10:00-23:00", *patch.BusinessHours)
	assert.Nil(t, patch.StoreName)
	assert.Nil(t, patch.ShiftDeadlineDay)

	patch, err = settingPatch("breakRules", json.RawMessage(`{"6hours":30}`))
	require.NoError(t, err)
	require.NotNil(t, patch.BreakRules)
	assert.Equal(t, map[string]int{"6hours": 30}, *patch.BreakRules)
}

func TestSettingPatchRejectsUnknownKeyAndBadValue(t *testing.T) {
	_, err := settingPatch("noSuchKey", json.RawMessage(`"x"`))
	require.ErrorIs(t, err, entities.ErrInvalidSettingKey)

	_, err = settingPatch("shiftDeadlineDay", json.RawMessage(`"not a number"`))
	require.ErrorIs(t, err, entities.ErrInvalidSetting)
}

func TestHttpErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{entities.ErrUserNotFound, http.StatusNotFound},
		{entities.ErrShiftNotFound, http.StatusNotFound},
		{entities.ErrInvalidDate, http.StatusBadRequest},
		{entities.ErrInvalidTransition, http.StatusConflict},
		{entities.ErrUnauthorized, http.StatusUnauthorized},
		{entities.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		he, ok := httpError(tc.err).(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, tc.code, he.Code, "error %v", tc.err)
	}
}
