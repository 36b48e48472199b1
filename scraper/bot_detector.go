package scraper

import (
	"regexp"
	"strings"
)

// BotDetector detects bot walls and CAPTCHAs served instead of catalog pages
type BotDetector struct {
	botPatterns     []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
	blockPatterns   []*regexp.Regexp
}

// NewBotDetector creates a new bot detector
func NewBotDetector() *BotDetector {
	return &BotDetector{
		botPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)bot detected`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)attention required`),
			regexp.MustCompile(`(?i)ddos protection`),
			regexp.MustCompile(`(?i)request unsuccessful`),
		},
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcaptcha\b`),
			regexp.MustCompile(`(?i)recaptcha`),
			regexp.MustCompile(`(?i)hcaptcha`),
			regexp.MustCompile(`(?i)verify you are (a )?human`),
		},
		blockPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)403 forbidden`),
			regexp.MustCompile(`(?i)429 too many requests`),
			regexp.MustCompile(`(?i)503 service unavailable`),
		},
	}
}

// DetectBotWall checks if the page content indicates a bot wall.
// It returns the verdict, the matched reasons and a score in [0, 1].
func (bd *BotDetector) DetectBotWall(pageContent, pageTitle string) (bool, string, float64) {
	content := pageContent + " " + pageTitle

	botScore := 0.0
	var botReasons []string

	for _, pattern := range bd.botPatterns {
		if pattern.MatchString(content) {
			botScore += 0.3
			botReasons = append(botReasons, pattern.String())
		}
	}

	// a single signal needs short content to count; catalog footers
	// mention reCAPTCHA on every page
	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			botScore += 0.3
			botReasons = append(botReasons, "CAPTCHA detected: "+pattern.String())
		}
	}

	for _, pattern := range bd.blockPatterns {
		if pattern.MatchString(content) {
			botScore += 0.3
			botReasons = append(botReasons, "HTTP error: "+pattern.String())
		}
	}

	// Wall pages are short
	if botScore > 0 && len(content) < 1000 {
		botScore += 0.2
		botReasons = append(botReasons, "very short content")
	}

	if botScore > 1.0 {
		botScore = 1.0
	}

	return botScore > 0.3, strings.Join(botReasons, "; "), botScore
}
