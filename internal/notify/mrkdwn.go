package notify

import (
	"regexp"
	"strings"
)

var (
	mdBold    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdLink    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdStrike  = regexp.MustCompile(`~~([^~]+)~~`)
	mdHeading = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
)

// toMrkdwn rewrites the subset of Markdown used by reports into Slack mrkdwn.
func toMrkdwn(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		if m := mdHeading.FindStringSubmatch(line); m != nil {
			line = "**" + m[1] + "**"
		}
		line = mdBold.ReplaceAllString(line, "*$1*")
		line = mdLink.ReplaceAllString(line, "<$2|$1>")
		line = mdStrike.ReplaceAllString(line, "~$1~")
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
