package bot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cmd, args, ok := p.ParseCommand("/submit 12 скриншот подписки")
	require.True(t, ok)
	require.Equal(t, "submit", cmd)
	require.Equal(t, []string{"12", "скриншот", "подписки"}, args)

	cmd, _, ok = p.ParseCommand("!TASKS")
	require.True(t, ok)
	require.Equal(t, "tasks", cmd)

	// Команда с упоминанием бота
	cmd, _, ok = p.ParseCommand("/start@AdsPrediaBot REF00042")
	require.True(t, ok)
	require.Equal(t, "start", cmd)

	_, _, ok = p.ParseCommand("просто текст")
	require.False(t, ok)

	_, _, ok = p.ParseCommand("/")
	require.False(t, ok)

	_, _, ok = p.ParseCommand("   ")
	require.False(t, ok)
}

func TestParseCommandNoArgs(t *testing.T) {
	p := NewCommandParser()

	cmd, args, ok := p.ParseCommand("/bonus")
	require.True(t, ok)
	require.Equal(t, "bonus", cmd)
	require.Nil(t, args)
}
