package telegrambot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractSubmissionID(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{
			name: "full permalink",
			text: "look at this https://www.reddit.com/r/pics/comments/1abc23/some_title/",
			want: "1abc23",
		},
		{
			name: "permalink without trailing slug",
			text: "https://reddit.com/r/videos/comments/xyz99",
			want: "xyz99",
		},
		{
			name: "old reddit host",
			text: "https://old.reddit.com/r/aww/comments/q1w2e3/cat/",
			want: "q1w2e3",
		},
		{
			name: "short link",
			text: "check https://redd.it/1abc23 out",
			want: "1abc23",
		},
		{
			name: "mixed case subreddit",
			text: "https://www.reddit.com/r/EarthPorn/comments/zz9xx/view/",
			want: "zz9xx",
		},
		{
			name: "no link",
			text: "just some chatter about reddit",
			want: "",
		},
		{
			name: "subreddit link without post",
			text: "https://www.reddit.com/r/pics/",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, extractSubmissionID(tc.text))
		})
	}
}
