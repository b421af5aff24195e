package billing

import (
	"context"
	"fmt"
	"html"

	"github.com/dmitrymomot/mealsub/pkg/email"
)

// EmailNotifier sends billing notices through an email.Sender.
type EmailNotifier struct {
	sender     email.Sender
	recipients RecipientLookup
	siteURL    string
}

func NewEmailNotifier(sender email.Sender, recipients RecipientLookup, siteURL string) *EmailNotifier {
	return &EmailNotifier{sender: sender, recipients: recipients, siteURL: siteURL}
}

func (n *EmailNotifier) SubscriptionStarted(ctx context.Context, sub Subscription) error {
	to, err := n.recipients.SubscriberEmail(ctx, sub.ExternalSubscriptionID)
	if err != nil {
		return fmt.Errorf("subscription confirmation recipient: %w", err)
	}

	text := fmt.Sprintf("Your subscription to meal plan %s is confirmed.", sub.MealPlanID)
	if !sub.EndDate.IsZero() {
		text += fmt.Sprintf(" The current period runs until %s.", sub.EndDate.Format("January 2, 2006"))
	}
	return n.sender.SendEmail(ctx, email.Message{
		To:       to,
		Subject:  "Your meal subscription is confirmed",
		TextBody: text,
		HTMLBody: "<p>" + html.EscapeString(text) + "</p>",
		Tag:      "subscription-confirmed",
	})
}

func (n *EmailNotifier) PaymentFailed(ctx context.Context, externalID string) error {
	to, err := n.recipients.SubscriberEmail(ctx, externalID)
	if err != nil {
		return fmt.Errorf("payment failure recipient: %w", err)
	}

	text := "We could not process the latest payment for your meal subscription. " +
		"Please update your payment details at " + n.siteURL + "/account to keep your deliveries coming."
	return n.sender.SendEmail(ctx, email.Message{
		To:       to,
		Subject:  "Payment failed for your meal subscription",
		TextBody: text,
		HTMLBody: "<p>" + html.EscapeString(text) + "</p>",
		Tag:      "payment-failed",
	})
}
