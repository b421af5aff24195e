package logger

import "log/slog"

// Error records err under "error". A nil error yields an empty Attr, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the identity the request acts for.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// MealPlanID records a meal plan identifier.
func MealPlanID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("meal_plan_id", id)
}

// SubscriptionID records an external (payment provider) subscription id.
func SubscriptionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("subscription_id", id)
}

// CustomerID records a payment provider customer id.
func CustomerID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("customer_id", id)
}

// SessionID records a checkout session id.
func SessionID(id string) slog.Attr {
	return slog.String("session_id", id)
}

// EventID records a webhook event id.
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the provider's raw event type.
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Provider records the payment provider name.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Status records a subscription status.
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}
