// README: Opaque identifier shared by agents.
package types

type ID string
