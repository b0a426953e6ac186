package email

import "fmt"

// SendBookingConfirmation notifies a customer that their booking was
// received.
func (c *Client) SendBookingConfirmation(to, fullName string, bookingID int64, estimatedPrice float64) error {
	subject := "Your cleaning booking is confirmed"
	html := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Thanks for booking with Dustout. Your booking reference is <strong>#%d</strong> and the estimated price is <strong>£%.2f</strong>.</p>
<p>We will be in touch shortly to arrange a date and time.</p>`,
		fullName, bookingID, estimatedPrice,
	)
	return c.Send(to, subject, html)
}

// SendSchedulingConfirmation notifies a customer that their booking has been
// scheduled. staffName may be empty when no cleaner has been assigned yet.
func (c *Client) SendSchedulingConfirmation(to, fullName, staffName, date, timeOfDay, address string) error {
	subject := "Your cleaning visit has been scheduled"
	assigned := "our team"
	if staffName != "" {
		assigned = staffName
	}
	html := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your cleaning visit has been scheduled for <strong>%s</strong> at <strong>%s</strong>.</p>
<p>%s will attend at %s.</p>`,
		fullName, date, timeOfDay, assigned, address,
	)
	return c.Send(to, subject, html)
}

// SendPlanChange notifies a customer that their subscription plan changed.
func (c *Client) SendPlanChange(to, fullName, oldPlan, newPlan string, upgrade bool) error {
	direction := "downgraded"
	if upgrade {
		direction = "upgraded"
	}
	subject := "Your Dustout subscription has been " + direction
	html := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your subscription has been %s from <strong>%s</strong> to <strong>%s</strong>. Any price difference is prorated on your next invoice.</p>`,
		fullName, direction, oldPlan, newPlan,
	)
	return c.Send(to, subject, html)
}

// SendSubscriptionCancelled notifies a customer that their subscription was
// cancelled.
func (c *Client) SendSubscriptionCancelled(to, fullName, planName string) error {
	subject := "Your Dustout subscription has been cancelled"
	html := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Your <strong>%s</strong> subscription has been cancelled. We're sorry to see you go.</p>`,
		fullName, planName,
	)
	return c.Send(to, subject, html)
}
