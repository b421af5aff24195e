// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context (the request context plus the raw request
// and writer) and a decoded request value, and returns a Response that renders
// itself. Binding and rendering errors, and errors returned via Error, are
// passed to an ErrorHandler which writes a JSON {"error": "..."} body.
//
//	type checkoutRequest struct {
//	    MealPlanID string `json:"meal_plan_id" validate:"required"`
//	}
//
//	h := handler.Wrap(func(ctx handler.Context, req checkoutRequest) handler.Response {
//	    id, err := svc.CreateSession(ctx, token, req.MealPlanID)
//	    if err != nil {
//	        return handler.Error(err)
//	    }
//	    return handler.JSON(http.StatusOK, map[string]string{"sessionId": id})
//	}, handler.WithBinder[checkoutRequest](binder.JSON()))
package handler
