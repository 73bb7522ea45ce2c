// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"repolaunch/internal/conversation"
)

// maxImageSelectionAttempts bounds how often the model may answer with an
// off-list or untagged image before the phase fails.
const maxImageSelectionAttempts = 5

// selectBaseImage asks the model to pick a base image from the language
// advisor's candidate list. Off-list or untagged answers get a corrective
// message and another attempt.
func (e *Engine) selectBaseImage(ctx context.Context, t *Task) (Patch, error) {
	candidates := e.Advisor.BaseImages(t.Platform)
	if len(candidates) == 0 {
		return Patch{}, fmt.Errorf("no candidate images for language %s on %s", e.Advisor.Language(), t.Platform)
	}

	hints := ""
	if t.Instance.Hints != "" {
		hints = fmt.Sprintf("\nAnd additional hints to set up / test the repo: <hint>%s</hint>\n", t.Instance.Hints)
	}
	consideration := ""
	if t.Platform != "linux" {
		consideration = fmt.Sprintf("4. The operating system of the image is %s.", t.Platform)
	}

	msgs := []conversation.Message{
		conversation.User(fmt.Sprintf(selectImagePrompt, t.Docs, hints, consideration, strings.Join(candidates, "\n"))),
	}

	for attempt := 0; attempt < maxImageSelectionAttempts; attempt++ {
		resp, err := e.Model.Invoke(ctx, msgs)
		if err != nil {
			return Patch{}, err
		}
		msgs = append(msgs, resp)

		img, ok := extractImageTag(resp.Content)
		if !ok {
			msgs = append(msgs, conversation.User(
				"Please wrap the image name in a block like <image>ubuntu:20.04</image> to indicate your choice."))
			continue
		}
		if !slices.Contains(candidates, img) {
			msgs = append(msgs, conversation.User(fmt.Sprintf(
				"The image you selected (%s) is not in the candidate list: %s. Please select again.",
				img, strings.Join(candidates, ", "))))
			continue
		}

		e.Logger.Info("selected base image", "image", img)
		return Patch{BaseImage: &img}, nil
	}

	return Patch{}, fmt.Errorf("no valid base image selected after %d attempts", maxImageSelectionAttempts)
}

func extractImageTag(response string) (string, bool) {
	_, rest, ok := strings.Cut(response, "<image>")
	if !ok {
		return "", false
	}
	img, _, ok := strings.Cut(rest, "</image>")
	if !ok {
		return "", false
	}
	img = strings.TrimSpace(img)
	return img, img != ""
}
