package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

var urlPattern = regexp.MustCompile(`(https?://\S+)`)

func (c *Controller) dispatchImage(sess *domain.Session, raw, lower string) {
	userID := sess.UserID

	switch lower {
	case "":
		c.presenter.Send(userID, "Describe the image you want. \"settings\" shows the current setup, \"menu\" goes back.")
		return
	case "model":
		c.presenter.Send(userID, c.imageModelInfo(sess))
		return
	case "settings":
		c.presenter.Send(userID, c.imageSettingsText(sess))
		return
	case "library":
		c.showLibrary(sess, "")
		return
	}

	if arg, ok := directiveArg(lower, "model"); ok {
		c.changeImageModel(sess, arg)
		return
	}
	if arg, ok := directiveArg(lower, "ratio"); ok {
		c.changeAspectRatio(sess, arg)
		return
	}
	if arg, ok := directiveArg(lower, "aspect"); ok {
		c.changeAspectRatio(sess, arg)
		return
	}
	if arg, ok := directiveArg(lower, "resolution"); ok {
		c.changeResolution(sess, arg)
		return
	}
	if arg, ok := directiveArg(lower, "size"); ok {
		c.changeResolution(sess, arg)
		return
	}
	if rest, ok := directiveArg(lower, "library"); ok {
		c.showLibrary(sess, rest)
		return
	}

	if sess.Busy {
		c.presenter.Send(userID, "Still working on your previous request. One moment.")
		return
	}

	if ok, remaining := c.cooldown.TryAcquire(userID, config.ImageCooldown); !ok {
		c.presenter.Send(userID, fmt.Sprintf(
			"Image generation is cooling down. Try again in %d seconds.", remaining))
		return
	}

	// Settings are captured before the async hop; mid-flight changes
	// apply to the next generation.
	model, ratio, resolution := sess.ImageModel, sess.AspectRatio, sess.Resolution

	if match := urlPattern.FindString(raw); match != "" {
		prompt := strings.TrimSpace(strings.Replace(raw, match, "", 1))
		if prompt == "" {
			c.presenter.Send(userID, "Add a prompt after the image URL.\nExample: "+match+" make it look like a painting")
			c.cooldown.Release(userID)
			return
		}
		sess.Busy = true
		c.presenter.Send(userID, fmt.Sprintf(
			"Image-to-image: %s\nSource: %s\n%s | %s | %s\nDownloading the source image...",
			prompt, match, imageModelDisplayName(model), ratio, resolution))
		c.spawn(func() {
			c.runImageToImage(userID, prompt, match, model, ratio, resolution)
		})
		return
	}

	sess.Busy = true
	notice := "Generating image..."
	if model == config.ModelImagePro {
		notice = "Generating a high quality image..."
		if resolution == config.Resolution4K {
			notice = "Generating a 4K image... (this takes a while)"
		}
	}
	c.presenter.Send(userID, fmt.Sprintf("%s | %s | %s\n%s",
		imageModelDisplayName(model), ratio, resolution, notice))
	c.spawn(func() {
		c.runTextToImage(userID, raw, model, ratio, resolution)
	})
}

func (c *Controller) runTextToImage(userID int64, prompt, model, ratio, resolution string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.ImageRequestTimeout)
	data, err := c.generator.GenerateImage(ctx, prompt, model, ratio, resolution, c.cfg.ImageSystemPrompt, nil)
	cancel()
	if err != nil {
		slog.Error("image generation failed", "user_id", userID, "model", model, "error", err)
		c.finishImage(userID, prompt, model, ratio, resolution, "",
			"Image generation failed. Try a different prompt.")
		return
	}
	c.uploadAndFinish(userID, prompt, model, ratio, resolution, data)
}

func (c *Controller) runImageToImage(userID int64, prompt, sourceURL, model, ratio, resolution string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DownloadTimeout)
	source, err := c.fetcher.Fetch(ctx, sourceURL)
	cancel()
	if err != nil {
		slog.Warn("source image download failed", "user_id", userID, "url", sourceURL, "error", err)
		c.finishImage(userID, prompt, model, ratio, resolution, "",
			"Could not download the source image. Check the URL; it should link directly to a JPEG, PNG or WebP.")
		return
	}

	c.notify(userID, "Transforming the image...")

	reference := &domain.InlineData{
		MimeType: source.MimeType,
		Data:     base64.StdEncoding.EncodeToString(source.Data),
	}
	ctx, cancel = context.WithTimeout(context.Background(), config.ImageRequestTimeout)
	data, err := c.generator.GenerateImage(ctx, prompt, model, ratio, resolution, c.cfg.ImageSystemPrompt, reference)
	cancel()
	if err != nil {
		slog.Error("image-to-image generation failed", "user_id", userID, "model", model, "error", err)
		c.finishImage(userID, prompt, model, ratio, resolution, "",
			"Image transformation failed. Try a different prompt.")
		return
	}
	c.uploadAndFinish(userID, prompt+" (i2i)", model, ratio, resolution, data)
}

func (c *Controller) uploadAndFinish(userID int64, prompt, model, ratio, resolution string, data []byte) {
	c.notify(userID, "Uploading the image...")

	ctx, cancel := context.WithTimeout(context.Background(), config.UploadTimeout*3)
	imageURL, err := c.uploader.Upload(ctx, data)
	cancel()
	if err != nil {
		slog.Error("image upload failed", "user_id", userID, "error", err)
		c.finishImage(userID, prompt, model, ratio, resolution, "",
			"Could not upload the image to any hosting service. Try again in a bit.")
		return
	}
	c.finishImage(userID, prompt, model, ratio, resolution, imageURL, "")
}

// finishImage posts the pipeline outcome back onto the loop. The busy flag
// always clears; the library write and the reply happen only for a user
// still in image mode.
func (c *Controller) finishImage(userID int64, prompt, model, ratio, resolution, imageURL, failure string) {
	c.post(func() {
		sess, ok := c.session(userID)
		if ok {
			sess.Busy = false
		}
		if !ok || sess.Mode != domain.ModeImage {
			return
		}
		if failure != "" {
			c.presenter.Send(userID, failure)
			return
		}

		c.library.Add(userID, domain.ImageRecord{
			Prompt:      prompt,
			Model:       model,
			AspectRatio: ratio,
			Resolution:  resolution,
			ImageURL:    imageURL,
		})
		c.presenter.Send(userID, fmt.Sprintf(
			"Done! %s\n%s | %s | %s\nSaved to your library (%d images).",
			imageURL, imageModelDisplayName(model), ratio, resolution, c.library.Len(userID)))
		c.auditAsync(userID, "image", model, prompt, imageURL)
	})
}

// notify sends a progress line to a user who is still around to see it.
func (c *Controller) notify(userID int64, text string) {
	c.post(func() {
		if _, ok := c.session(userID); ok {
			c.presenter.Send(userID, text)
		}
	})
}

func (c *Controller) changeImageModel(sess *domain.Session, arg string) {
	var newModel string
	switch arg {
	case "nanobanana", "nano", "banana", "nb", "flash", "1":
		newModel = config.ModelImage
	case "nanobanana-pro", "nanobananapro", "nb-pro", "nbpro", "pro", "2":
		newModel = config.ModelImagePro
	default:
		c.presenter.Send(sess.UserID, fmt.Sprintf(
			"Unknown image model: %s\nAvailable: nanobanana, nanobanana-pro", arg))
		return
	}

	if newModel == sess.ImageModel {
		c.presenter.Send(sess.UserID, fmt.Sprintf("Already using %s.", imageModelDisplayName(newModel)))
		return
	}

	sess.ImageModel = newModel
	msg := fmt.Sprintf("Image model switched to %s.", imageModelDisplayName(newModel))
	if newModel == config.ModelImage {
		if sess.Resolution != config.Resolution1K {
			sess.Resolution = config.Resolution1K
			msg += "\nResolution reset to 1K; Nanobanana only renders 1K."
		} else {
			msg += "\nNanobanana renders at a fixed 1K resolution."
		}
	} else {
		msg += "\nNanobanana Pro is higher quality and supports 2K and 4K, but can be slower."
	}
	c.presenter.Send(sess.UserID, msg)
}

func (c *Controller) changeAspectRatio(sess *domain.Session, arg string) {
	if !config.IsValidAspectRatio(arg) {
		c.presenter.Send(sess.UserID, fmt.Sprintf(
			"Invalid aspect ratio: %s\nAvailable: %s", arg, strings.Join(config.ValidAspectRatios, ", ")))
		return
	}
	if arg == sess.AspectRatio {
		c.presenter.Send(sess.UserID, fmt.Sprintf("Already using aspect ratio %s.", arg))
		return
	}
	sess.AspectRatio = arg
	c.presenter.Send(sess.UserID, fmt.Sprintf("Aspect ratio changed to %s.", arg))
}

func (c *Controller) changeResolution(sess *domain.Session, arg string) {
	if sess.ImageModel != config.ModelImagePro {
		c.presenter.Send(sess.UserID,
			"Resolution can only be changed on Nanobanana Pro.\nSwitch with \"model nanobanana-pro\" first.")
		return
	}

	var resolution string
	switch strings.ToUpper(arg) {
	case "1K", "1024":
		resolution = config.Resolution1K
	case "2K", "2048":
		resolution = config.Resolution2K
	case "4K", "4096":
		resolution = config.Resolution4K
	default:
		c.presenter.Send(sess.UserID, fmt.Sprintf(
			"Invalid resolution: %s\nAvailable: 1K, 2K, 4K", arg))
		return
	}

	if resolution == sess.Resolution {
		c.presenter.Send(sess.UserID, fmt.Sprintf("Already using resolution %s.", resolution))
		return
	}
	sess.Resolution = resolution
	msg := fmt.Sprintf("Resolution changed to %s.", resolution)
	if resolution == config.Resolution4K {
		msg += "\n4K images cost noticeably more per generation."
	}
	c.presenter.Send(sess.UserID, msg)
}

func (c *Controller) imageModelInfo(sess *domain.Session) string {
	return fmt.Sprintf("Current image model: %s\n"+
		"Switch with \"model <name>\":\n"+
		"1. nanobanana - fast, fixed 1K\n"+
		"2. nanobanana-pro - high quality, up to 4K", imageModelDisplayName(sess.ImageModel))
}

func (c *Controller) imageSettingsText(sess *domain.Session) string {
	return fmt.Sprintf("Image settings:\n"+
		"  model: %s\n"+
		"  aspect ratio: %s (valid: %s)\n"+
		"  resolution: %s (valid: %s)\n"+
		"Change with \"model <name>\", \"ratio <w:h>\", \"resolution <1K|2K|4K>\".",
		imageModelDisplayName(sess.ImageModel),
		sess.AspectRatio, strings.Join(config.ValidAspectRatios, ", "),
		sess.Resolution, strings.Join(config.ValidResolutions(sess.ImageModel), ", "))
}
