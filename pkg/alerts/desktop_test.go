package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesktopNotifier_Send(t *testing.T) {
	d := NewDesktopNotifier(model.LevelWarning)
	var titles []string
	d.notify = func(title, _ string) error {
		titles = append(titles, title)
		return nil
	}

	ctx := context.Background()
	info := Notification{Alert: model.Alert{Level: model.LevelInfo, Dimension: model.DimensionBudget}}
	crit := Notification{Alert: model.Alert{Level: model.LevelCritical, Dimension: model.DimensionCAC, Message: "CAC high"}}

	require.NoError(t, d.Send(ctx, info))
	require.NoError(t, d.Send(ctx, crit))
	assert.Equal(t, []string{"Ad Spend Guardian: CAC CRITICAL"}, titles)
	assert.Equal(t, "desktop", d.Name())
}

func TestDesktopNotifier_Send_Error(t *testing.T) {
	d := NewDesktopNotifier(model.LevelInfo)
	d.notify = func(string, string) error { return errors.New("no display") }

	err := d.Send(context.Background(), Notification{Alert: model.Alert{Level: model.LevelWarning, Dimension: model.DimensionROAS}})
	assert.ErrorContains(t, err, "no display")
}
