// Package resolution classifies source dimensions into output tiers and
// holds the fixed per-tier encoding constants.
//
// Wide sources (width/height above 1.4) are classified by width, everything
// else by height. A ladder is every tier at or below the native one.
package resolution
