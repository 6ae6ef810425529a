package modules

import "github.com/acrine/authstack"

func init() {
	authstack.DefaultRegistry.Register(authstack.FallbackModuleType, func() authstack.DecisionModule { return &DelegatingModule{} })
	authstack.DefaultRegistry.Register("rolecheck", func() authstack.DecisionModule { return &RoleCheckModule{} })
	authstack.DefaultRegistry.Register("attribute", func() authstack.DecisionModule { return &AttributeModule{} })
	authstack.DefaultRegistry.Register("static", func() authstack.DecisionModule { return &StaticModule{} })
}
