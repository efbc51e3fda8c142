package revert

import (
	"fmt"
	"strings"
)

// Summary renders the success text returned by RevertViaTempClone.
func Summary(req Request, pushOutput string) string {
	fullName := fmt.Sprintf("%s/%s", req.Owner, req.Repo)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Reverted commit %s on %s@%s and pushed to origin.\n", req.SHA, fullName, req.Branch))
	builder.WriteString(fmt.Sprintf("Repository: %s\n", fullName))
	builder.WriteString(fmt.Sprintf("Branch: %s\n", req.Branch))
	builder.WriteString(fmt.Sprintf("Commit: %s\n", req.SHA))
	if out := strings.TrimSpace(pushOutput); out != "" {
		builder.WriteString(out)
		builder.WriteString("\n")
	}
	return builder.String()
}
