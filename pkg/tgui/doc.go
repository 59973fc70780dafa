// Package tgui renders small HTML cards for Telegram's HTML parse mode.
// Every user-supplied string is escaped.
package tgui
