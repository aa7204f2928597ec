// Package adgen returns canned ad copy per platform after a fixed delay.
package adgen

import (
	"context"
	"time"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
)

const DefaultDelay = 2 * time.Second

var mockContent = map[models.Platform]models.AdContent{
	models.PlatformGoogle: {
		Headlines: []string{
			"High-Quality Product - Shop Now",
			"Best Deals on Premium Products",
			"Discover Excellence - Limited Time Offer",
		},
		Descriptions: []string{
			"Find the perfect solution for your needs. Our premium products are designed for maximum satisfaction.",
			"Top-rated selection with fast shipping and excellent customer service. Don't miss out!",
		},
		CTA:      "Shop Now",
		Keywords: []string{"premium product", "quality", "best deals", "fast shipping"},
	},
	models.PlatformMeta: {
		Headlines: []string{
			"Transform Your Experience Today!",
			"Discover What Everyone's Talking About",
			"Your Perfect Match Has Arrived",
		},
		Descriptions: []string{
			"Elevate your everyday with our premium product that combines style, functionality, and durability in one perfect package.",
			"Join thousands of satisfied customers who've made the switch. Limited time offer - don't miss out!",
		},
		CTA:      "Shop Now",
		Hashtags: []string{"#MustHave", "#PremiumQuality", "#LimitedOffer", "#BestDeal"},
	},
	models.PlatformTikTok: {
		Headlines: []string{
			"This product is EVERYTHING 🔥",
			"Wait till you see this... 👀✨",
			"POV: Your life before vs after this product",
		},
		Descriptions: []string{
			"No joke, this changed my life! Perfect for anyone who wants to level up their game. #FYP",
			"The product everyone's obsessing over right now. Run don't walk! 🏃‍♂️💨",
		},
		CTA:      "Shop Now",
		Hashtags: []string{"#TikTokMadeMeBuyIt", "#FYP", "#Viral", "#MustHave", "#Obsessed"},
	},
}

type Generator struct {
	delay time.Duration
}

func NewGenerator(delay time.Duration) *Generator {
	if delay < 0 {
		delay = 0
	}
	return &Generator{delay: delay}
}

// NewGeneratorFromEnv reads ADGEN_DELAY.
func NewGeneratorFromEnv() *Generator {
	return NewGenerator(env.GetDuration("ADGEN_DELAY", DefaultDelay))
}

// Generate returns the content for platform once the delay has passed. The
// returned slices are copies and may be modified by the caller.
func (g *Generator) Generate(ctx context.Context, platform models.Platform) (models.AdContent, error) {
	if !platform.Valid() {
		return models.AdContent{}, models.ErrUnknownPlatform
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.AdContent{}, ctx.Err()
		case <-timer.C:
		}
	}

	c := mockContent[platform]
	return models.AdContent{
		Headlines:    append([]string(nil), c.Headlines...),
		Descriptions: append([]string(nil), c.Descriptions...),
		CTA:          c.CTA,
		Hashtags:     append([]string(nil), c.Hashtags...),
		Keywords:     append([]string(nil), c.Keywords...),
	}, nil
}
