// Package listbot implements a Discord bot that manages the day-to-day
// operations of a demon-list community: it mirrors list events into Discord
// channels and threads, and tracks the staff team's review work.
//
// The bot maintains a persistent websocket connection to the list backend
// and routes incoming notification frames to typed handlers. Submission
// events become archive embeds, public announcements, and review threads;
// shift events award or deduct staff points and schedule shift-start pings.
//
// Key components of the package include:
//
//   - Bot: The main struct that encapsulates the bot's core functionality.
//   - Discord: Handles Discord integration and gateway event processing.
//   - AredlClient: Talks to the list backend's REST API.
//   - NotificationSocket: Maintains the websocket feed of list events.
//   - API: Provides a small status/health HTTP endpoint.
//
// The bot supports slash commands:
//
//   - /points: Shows a staff member's current point balance.
//   - /settings: Lets staff toggle shift-start ping DMs.
//
// Scheduled tasks handle the weekly points rollup, upcoming-shift
// reminders, and periodic summaries of submissions that have sat under
// consideration too long.
package listbot
