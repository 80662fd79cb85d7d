// Package all wires every built-in warehouse backend into the factory.
//
// It exists purely for side effects: a blank import runs the init functions
// of each backend package, which register themselves with warehouse.New.
// Kinds enabled: "postgres", "sqlite".
package all

import (
	_ "github.com/youssefmaimouni/GoogleCloudProject/internal/warehouse/postgres"
	_ "github.com/youssefmaimouni/GoogleCloudProject/internal/warehouse/sqlite"
)
