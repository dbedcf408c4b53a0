package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

const (
	welcomeText = "Welcome to CraftMind, your Minecraft AI assistant."
	goodbyeText = "Session closed. Send /start whenever you need me again."

	menuText = "Main menu:\n" +
		"1. chat - talk through your build ideas\n" +
		"2. search - web-grounded answers\n" +
		"3. command - generate Minecraft commands\n" +
		"4. image - generate images\n" +
		"5. help\n" +
		"6. status\n" +
		"7. library\n" +
		"8. history\n" +
		"Send a number or a name. \"exit\" closes the session."

	helpText = "How it works:\n" +
		"- Pick a mode from the menu, then just type. The AI replies in that mode.\n" +
		"- \"menu\" or \"back\" returns here from any mode; \"exit\" here closes the session.\n" +
		"- \"model\" shows the current model in text modes; \"model <name>\" switches it.\n" +
		"- \"clear\" wipes the conversation history without leaving the mode.\n" +
		"- In image mode: \"ratio <w:h>\", \"resolution <1K|2K|4K>\", \"settings\", \"library\".\n" +
		"- Image-to-image: send an image URL followed by a prompt.\n" +
		"- \"library view <n>\" shows a stored image, \"library reuse <n>\" feeds it back in."
)

func (c *Controller) dispatch(userID int64, text string) {
	sess, ok := c.session(userID)
	if !ok {
		c.presenter.Send(userID, "No active session. Send /start to begin.")
		return
	}

	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)

	switch lower {
	case "exit", "menu", "back":
		if sess.Mode == domain.ModeMainMenu {
			c.endSession(userID)
		} else {
			sess.Mode = domain.ModeMainMenu
			c.presenter.Send(userID, menuText)
		}
		return
	}

	switch sess.Mode {
	case domain.ModeMainMenu:
		c.dispatchMenu(sess, lower)
	case domain.ModeChat:
		c.dispatchChat(sess, raw, lower)
	case domain.ModeSearch:
		c.dispatchSearch(sess, raw, lower)
	case domain.ModeImage:
		c.dispatchImage(sess, raw, lower)
	case domain.ModeCommand:
		c.dispatchCommand(sess, raw, lower)
	default:
		c.presenter.Send(userID, "Send /start to begin.")
	}
}

func (c *Controller) dispatchMenu(sess *domain.Session, lower string) {
	userID := sess.UserID

	if rest, ok := directiveArg(lower, "library"); ok || lower == "library" {
		c.showLibrary(sess, rest)
		return
	}
	if rest, ok := directiveArg(lower, "history"); ok || lower == "history" {
		c.showRemoteHistory(sess, rest)
		return
	}
	if arg, ok := directiveArg(lower, "model"); ok {
		c.changeTextModel(sess, arg)
		return
	}

	switch lower {
	case "1", "chat":
		sess.Mode = domain.ModeChat
		c.presenter.Send(userID, fmt.Sprintf(
			"Chat mode (%s). Tell me what you are planning and I will help.\nDirectives: model, model <name>, menu.",
			modelDisplayName(sess.Model)))
	case "2", "search":
		sess.Mode = domain.ModeSearch
		c.presenter.Send(userID,
			"Search mode. Send a query and I will look it up on the web.\nDirectives: model, model <name>, menu.")
	case "3", "command":
		sess.Mode = domain.ModeCommand
		c.presenter.Send(userID,
			"Command mode. Describe what you want and I will synthesize the Minecraft command.\nDirectives: model, model <name>, menu.")
	case "4", "image":
		sess.Mode = domain.ModeImage
		c.presenter.Send(userID, c.imageSettingsText(sess)+
			"\n\nDescribe the image you want, or send an image URL followed by a prompt.")
	case "5", "help":
		c.presenter.Send(userID, helpText)
	case "6", "status":
		c.presenter.Send(userID, c.statusText(sess))
	case "7":
		c.showLibrary(sess, "")
	case "8":
		c.showRemoteHistory(sess, "")
	case "model":
		c.presenter.Send(userID, c.textModelInfo(sess))
	case "clear":
		c.history.Clear(userID)
		c.presenter.Send(userID, "Conversation history cleared.")
	case "":
		c.presenter.Send(userID, menuText)
	default:
		c.presenter.Send(userID, "Invalid choice. Send a number from 1 to 8, or a menu name.")
	}
}

func (c *Controller) dispatchChat(sess *domain.Session, raw, lower string) {
	if c.handleTextModeDirective(sess, lower, "Type your message and I will reply.") {
		return
	}
	c.generateChat(sess, raw)
}

func (c *Controller) dispatchSearch(sess *domain.Session, raw, lower string) {
	if c.handleTextModeDirective(sess, lower, "Type a search query.") {
		return
	}
	c.generateSearch(sess, raw)
}

func (c *Controller) dispatchCommand(sess *domain.Session, raw, lower string) {
	if c.handleTextModeDirective(sess, lower, "Describe what the command should do.") {
		return
	}
	c.generateCommand(sess, raw)
}

// handleTextModeDirective covers the directives shared by the chat, search
// and command modes. Returns true when the input was consumed.
func (c *Controller) handleTextModeDirective(sess *domain.Session, lower, emptyHint string) bool {
	switch {
	case lower == "":
		c.presenter.Send(sess.UserID, emptyHint+" \"menu\" returns to the main menu.")
		return true
	case lower == "model":
		c.presenter.Send(sess.UserID, c.textModelInfo(sess))
		return true
	case lower == "clear":
		c.history.Clear(sess.UserID)
		c.presenter.Send(sess.UserID, "Conversation history cleared.")
		return true
	}
	if arg, ok := directiveArg(lower, "model"); ok {
		c.changeTextModel(sess, arg)
		return true
	}
	if sess.Busy {
		c.presenter.Send(sess.UserID, "Still working on your previous request. One moment.")
		return true
	}
	return false
}

// directiveArg matches "<name> <arg>" and returns the argument.
func directiveArg(lower, name string) (string, bool) {
	if !strings.HasPrefix(lower, name+" ") {
		return "", false
	}
	return strings.TrimSpace(lower[len(name)+1:]), true
}

func (c *Controller) changeTextModel(sess *domain.Session, arg string) {
	var newModel string
	switch arg {
	case "flash", "f", "1":
		newModel = config.ModelFlash
	case "thinking", "flash-thinking", "t", "2":
		newModel = config.ModelFlashThinking
	case "pro", "p", "3":
		newModel = config.ModelPro
	default:
		c.presenter.Send(sess.UserID, fmt.Sprintf(
			"Unknown model: %s\nAvailable: flash, thinking, pro", arg))
		return
	}

	if newModel == sess.Model {
		c.presenter.Send(sess.UserID, fmt.Sprintf("Already using %s.", modelDisplayName(newModel)))
		return
	}

	sess.Model = newModel
	c.history.Clear(sess.UserID)

	msg := fmt.Sprintf("Model switched to %s. (conversation history cleared)", modelDisplayName(newModel))
	switch newModel {
	case config.ModelPro:
		msg += "\nPro thinks deeply and may take longer to reply."
	case config.ModelFlashThinking:
		msg += "\nFlash Thinking reasons deeply while staying fast."
	}
	c.presenter.Send(sess.UserID, msg)
}

func (c *Controller) textModelInfo(sess *domain.Session) string {
	return fmt.Sprintf("Current model: %s\n"+
		"Switch with \"model <name>\":\n"+
		"1. flash - fast everyday replies\n"+
		"2. thinking - deeper reasoning, still fast\n"+
		"3. pro - strongest, slower", modelDisplayName(sess.Model))
}

func (c *Controller) statusText(sess *domain.Session) string {
	return fmt.Sprintf("Status:\n"+
		"  mode: %s\n"+
		"  model: %s\n"+
		"  image model: %s\n"+
		"  aspect ratio: %s\n"+
		"  resolution: %s\n"+
		"  conversation turns: %d\n"+
		"  library images: %d",
		sess.Mode, modelDisplayName(sess.Model), imageModelDisplayName(sess.ImageModel),
		sess.AspectRatio, sess.Resolution,
		c.history.Len(sess.UserID), c.library.Len(sess.UserID))
}

func modelDisplayName(model string) string {
	switch model {
	case config.ModelFlash:
		return "Gemini 3 Flash"
	case config.ModelFlashThinking:
		return "Gemini 3 Flash Thinking"
	case config.ModelPro:
		return "Gemini 3 Pro"
	}
	return model
}

func imageModelDisplayName(model string) string {
	switch model {
	case config.ModelImage:
		return "Nanobanana"
	case config.ModelImagePro:
		return "Nanobanana Pro"
	}
	return model
}

func parsePage(arg string) int {
	page, err := strconv.Atoi(arg)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
