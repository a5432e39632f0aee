// Package sites recognizes the external services that search backends link
// to (boorus, AniList, MangaDex, Pixiv, ...). Engines use it to turn raw
// result URLs into normalized metadata keys, and providers use the same keys
// to decide whether a hit belongs to them and to build display links.
package sites
