// Package email sends transactional mail. Production traffic goes through
// Postmark (github.com/mrz1836/postmark); development uses LogSender, which
// writes messages to the logger instead of delivering them.
package email
