// Package fantamarket keeps the transfer market of a fantasy football league consistent.
//
// The package is built around a few pieces:
//   - Ledger: the cash of each team. Charges are atomic conditional decrements
//     evaluated by the store, so concurrent purchases can never overdraw a team.
//   - Roster limits: how many goalkeepers, defenders, midfielders and forwards a
//     team may hold. Players bought with a pending option do not take a slot.
//   - Resolver: maps the free-text team names found in spreadsheets and chats
//     to canonical teams, using overrides, names, aliases, cash and fuzzy scoring.
//   - Market: assigns, releases and moves players, charging and refunding teams.
//   - Importer: applies an authoritative roster snapshot and recomputes cash.
//
// Persistence goes through the Store interface. The memstore and sqlite packages
// provide implementations, and the fmk command drives them from the terminal.
package fantamarket
