package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNewSubscriber(t *testing.T) {
	t.Parallel()

	t.Run("accepts a well formed signup", func(t *testing.T) {
		t.Parallel()

		sub, err := ParseNewSubscriber("  Ursula Le Guin  ", "ursula@example.com")
		require.NoError(t, err)
		require.Equal(t, "Ursula Le Guin", sub.Name)
		require.Equal(t, "ursula@example.com", sub.Email)
	})

	t.Run("rejects empty or whitespace names", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"", "   ", "\t\n"} {
			_, err := ParseNewSubscriber(name, "a@b.com")
			require.ErrorIs(t, err, ErrEmptyName)
		}
	})

	t.Run("accepts a name of exactly the maximum length", func(t *testing.T) {
		t.Parallel()

		_, err := ParseNewSubscriber(strings.Repeat("a", 256), "a@b.com")
		require.NoError(t, err)
	})

	t.Run("rejects overlong names", func(t *testing.T) {
		t.Parallel()

		_, err := ParseNewSubscriber(strings.Repeat("a", 257), "a@b.com")
		require.ErrorIs(t, err, ErrNameTooLong)
	})

	t.Run("counts runes not bytes for the length limit", func(t *testing.T) {
		t.Parallel()

		_, err := ParseNewSubscriber(strings.Repeat("ё", 256), "a@b.com")
		require.NoError(t, err)
	})

	t.Run("rejects names containing forbidden characters", func(t *testing.T) {
		t.Parallel()

		for _, c := range forbiddenNameCharacters {
			_, err := ParseNewSubscriber("name"+string(c), "a@b.com")
			require.Error(t, err, "character %q should be rejected", c)
		}
	})

	t.Run("rejects malformed emails", func(t *testing.T) {
		t.Parallel()

		cases := []string{"", "   ", "not-an-email", "@domain.com", "user@", "two words@domain.com"}
		for _, email := range cases {
			_, err := ParseNewSubscriber("name", email)
			require.Error(t, err, "email %q should be rejected", email)
		}
	})
}

func TestIssueValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Issue{Title: "t", Content: IssueContent{Text: "body"}}.Validate())
	require.NoError(t, Issue{Title: "t", Content: IssueContent{HTML: "<p>body</p>"}}.Validate())
	require.ErrorIs(t, Issue{Content: IssueContent{Text: "body"}}.Validate(), ErrInvalidIssue)
	require.ErrorIs(t, Issue{Title: "t"}.Validate(), ErrInvalidIssue)
}
